package audit

import (
	"context"
	"strconv"
	"strings"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/authz"
)

const (
	defaultListPageSize = 10
	maxListPageSize     = 100
)

// Service は台帳の参照ユースケースをまとめます。
type Service struct {
	repo Repository
}

// NewService は Service を生成します。
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListEntriesInput は全体台帳一覧の入力です。
type ListEntriesInput struct {
	Principal authz.Principal
	PageSize  int
	PageToken string
}

// ListEntriesResult は全体台帳一覧の結果です。
type ListEntriesResult struct {
	Entries       []*Entry
	NextPageToken string
}

// ListEmployeeEntriesInput は社員別台帳一覧の入力です。
type ListEmployeeEntriesInput struct {
	Principal  authz.Principal
	EmployeeID int64
	PageSize   int
	PageToken  string
}

// ListEmployeeEntriesResult は社員別台帳一覧の結果です。
type ListEmployeeEntriesResult struct {
	Entries       []*EmployeeEntry
	NextPageToken string
}

// ListEntries は全体台帳を新しい順に返します。
func (s *Service) ListEntries(ctx context.Context, in ListEntriesInput) (*ListEntriesResult, error) {
	if err := authz.Authorize(in.Principal, authz.OpListAudit); err != nil {
		return nil, err
	}

	filter, err := newListFilter(in.PageSize, in.PageToken)
	if err != nil {
		return nil, err
	}

	entries, next, err := s.repo.ListEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListEntriesResult{Entries: entries, NextPageToken: next}, nil
}

// ListEmployeeEntries は指定した社員の台帳を新しい順に返します。
func (s *Service) ListEmployeeEntries(ctx context.Context, in ListEmployeeEntriesInput) (*ListEmployeeEntriesResult, error) {
	if err := authz.Authorize(in.Principal, authz.OpListAudit); err != nil {
		return nil, err
	}
	if in.EmployeeID <= 0 {
		return nil, ErrInvalidEmployeeID
	}

	filter, err := newListFilter(in.PageSize, in.PageToken)
	if err != nil {
		return nil, err
	}

	entries, next, err := s.repo.ListEmployeeEntries(ctx, in.EmployeeID, filter)
	if err != nil {
		return nil, err
	}
	return &ListEmployeeEntriesResult{Entries: entries, NextPageToken: next}, nil
}

// HasEmployeeHistory は社員別台帳に 1 件でもエントリがあれば true を返します。
func (s *Service) HasEmployeeHistory(ctx context.Context, employeeID int64) (bool, error) {
	n, err := s.repo.CountEmployeeEntries(ctx, employeeID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func newListFilter(pageSize int, token string) (ListFilter, error) {
	limit, err := normalizePageSize(pageSize)
	if err != nil {
		return ListFilter{}, err
	}
	offset, err := parsePageToken(token)
	if err != nil {
		return ListFilter{}, err
	}
	return ListFilter{Limit: limit, Offset: offset}, nil
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
