package testutil

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/siwarga/rwrt-backend/internal/accounts"
	"github.com/siwarga/rwrt-backend/internal/auth"
	"github.com/siwarga/rwrt-backend/internal/rbac"
	"github.com/stretchr/testify/mock"
)

// MockJWTService is a mock implementation of the JWT service interface
type MockJWTService struct {
	mock.Mock
}

// NewMockJWTService creates a new mock JWT service
func NewMockJWTService(t *testing.T) *MockJWTService {
	mockJWT := &MockJWTService{}
	mockJWT.Test(t)
	return mockJWT
}

// GenerateToken mocks token generation
func (m *MockJWTService) GenerateToken(ctx context.Context, sess rbac.Session) (string, error) {
	args := m.Called(ctx, sess)
	return args.String(0), args.Error(1)
}

// ValidateToken mocks token validation
func (m *MockJWTService) ValidateToken(ctx context.Context, token string) (*auth.TokenClaims, error) {
	args := m.Called(ctx, token)
	claims, _ := args.Get(0).(*auth.TokenClaims)
	return claims, args.Error(1)
}

// ExpectValidateToken sets up expectation for ValidateToken
func (m *MockJWTService) ExpectValidateToken(token string, claims *auth.TokenClaims, err error) *mock.Call {
	return m.On("ValidateToken", mock.Anything, token).Return(claims, err)
}

// MockQueue records enqueued tasks
type MockQueue struct {
	mock.Mock
}

func NewMockQueue(t *testing.T) *MockQueue {
	q := &MockQueue{}
	q.Test(t)
	return q
}

func (m *MockQueue) Enqueue(taskType string, data interface{}) (*asynq.TaskInfo, error) {
	args := m.Called(taskType, data)
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

// MockEmailSender stands in for SES
type MockEmailSender struct {
	mock.Mock
}

func NewMockEmailSender(t *testing.T) *MockEmailSender {
	m := &MockEmailSender{}
	m.Test(t)
	return m
}

func (m *MockEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

// MockObjectStore stands in for S3
type MockObjectStore struct {
	mock.Mock
}

func NewMockObjectStore(t *testing.T) *MockObjectStore {
	m := &MockObjectStore{}
	m.Test(t)
	return m
}

func (m *MockObjectStore) PutObject(ctx context.Context, key string, body io.Reader, contentType string) error {
	return m.Called(ctx, key, body, contentType).Error(0)
}

func (m *MockObjectStore) GeneratePresignedURL(ctx context.Context, method, key string, duration time.Duration) (string, error) {
	args := m.Called(ctx, method, key, duration)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) DeleteObject(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// MockAuthService stands in for the login/refresh service
type MockAuthService struct {
	mock.Mock
}

func NewMockAuthService(t *testing.T) *MockAuthService {
	m := &MockAuthService{}
	m.Test(t)
	return m
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (string, string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

func (m *MockAuthService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

// MockAccountService stands in for the account registry
type MockAccountService struct {
	mock.Mock
}

func NewMockAccountService(t *testing.T) *MockAccountService {
	m := &MockAccountService{}
	m.Test(t)
	return m
}

func (m *MockAccountService) List(ctx context.Context) ([]accounts.Account, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]accounts.Account)
	return list, args.Error(1)
}

func (m *MockAccountService) Create(ctx context.Context, in accounts.NewAccount) (accounts.Account, error) {
	args := m.Called(ctx, in)
	acc, _ := args.Get(0).(accounts.Account)
	return acc, args.Error(1)
}

func (m *MockAccountService) Deactivate(ctx context.Context, id uuid.UUID) (accounts.Account, error) {
	args := m.Called(ctx, id)
	acc, _ := args.Get(0).(accounts.Account)
	return acc, args.Error(1)
}
