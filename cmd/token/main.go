package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/platform/auth"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/platform/config"
)

// token はローカル検証用にアカウントのアクセストークンを発行します。
func main() {
	var (
		configPath = flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
		accountID  = flag.Int64("account", 0, "account id placed in the sub claim")
		ttl        = flag.Duration("ttl", time.Hour, "token lifetime")
	)
	flag.Parse()

	if *accountID <= 0 {
		logrus.Fatal("-account must be a positive account id")
	}

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "assets/local.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	token, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer).Issue(*accountID, *ttl)
	if err != nil {
		logrus.Fatalf("failed to issue token: %v", err)
	}
	fmt.Println(token)
}
