package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/authz"
	"github.com/ogurasousui/codex-grpc-rrhh/internal/platform/logging"
)

const (
	authorizationKey = "authorization"
	requestIDKey     = "x-request-id"
)

// Authenticator は Authorization ヘッダーから Principal を解決します。
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (authz.Principal, error)
}

// UnaryServerInterceptor はリクエスト ID の付与、Principal の解決、アクセスログ出力を行います。
func UnaryServerInterceptor(logger logrus.FieldLogger, auth Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		md, _ := metadata.FromIncomingContext(ctx)

		requestID := first(md, requestIDKey)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDKey, requestID))

		entry := logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     info.FullMethod,
		})
		ctx = logging.WithLogger(ctx, entry)

		principal, err := auth.Authenticate(ctx, first(md, authorizationKey))
		if err != nil {
			entry.WithError(err).Error("resolve principal failed")
			return nil, status.Error(codes.Internal, "resolve principal failed")
		}
		if principal.IsAuthenticated() {
			entry = entry.WithField("account_id", principal.AccountID)
			ctx = logging.WithLogger(ctx, entry)
		}
		ctx = authz.WithPrincipal(ctx, principal)

		resp, err := handler(ctx, req)

		code := status.Code(err)
		fields := logrus.Fields{
			"code":     code.String(),
			"duration": time.Since(start).String(),
		}
		switch code {
		case codes.OK:
			entry.WithFields(fields).Info("request completed")
		case codes.Internal, codes.Unknown, codes.Unavailable, codes.DataLoss:
			entry.WithFields(fields).WithError(err).Error("request failed")
		default:
			entry.WithFields(fields).WithError(err).Warn("request rejected")
		}

		return resp, err
	}
}

func first(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}
