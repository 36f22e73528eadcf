package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"suvidha-go/internal/model"
	"suvidha-go/internal/repository"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/log"
)

// IssuedAPIKey 是新建的 API Key，Key 只在创建时返回一次。
type IssuedAPIKey struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Key        string `json:"key"`
}

// APIKeyService 管理部门系统的 API Key。
type APIKeyService interface {
	Create(ctx context.Context, name, department string) (*IssuedAPIKey, error)
	Authenticate(ctx context.Context, presented string) (*model.APIKey, error)
	Revoke(ctx context.Context, id string) error
}

type apiKeyService struct {
	repo repository.APIKeyRepository
	now  func() time.Time
}

// NewAPIKeyService 创建一个新的 APIKeyService 实例。
func NewAPIKeyService(repo repository.APIKeyRepository) APIKeyService {
	return &apiKeyService{repo: repo, now: time.Now}
}

func randomSecret() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *apiKeyService) Create(ctx context.Context, name, department string) (*IssuedAPIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "name is required")
	}
	if !validDepartment(department) {
		return nil, apperr.New(apperr.CodeInvalidInput, "unknown department: "+department)
	}
	secret, err := randomSecret()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	key := &model.APIKey{Name: name, Department: department, SecretHash: string(hash), IsActive: true}
	if err := s.repo.Create(ctx, key); err != nil {
		return nil, err
	}
	log.Infof("[APIKeyService] 已创建 API Key: id=%s, department=%s", key.ID, department)
	return &IssuedAPIKey{ID: key.ID, Name: key.Name, Department: key.Department, Key: key.ID + "." + secret}, nil
}

// Authenticate 校验 "<id>.<secret>" 形式的密钥。格式或密钥错误返回 Unauthorized，已吊销返回 Forbidden。
func (s *apiKeyService) Authenticate(ctx context.Context, presented string) (*model.APIKey, error) {
	id, secret, ok := strings.Cut(strings.TrimSpace(presented), ".")
	if !ok || id == "" || secret == "" {
		return nil, apperr.New(apperr.CodeUnauthorized, "malformed API key")
	}
	key, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.New(apperr.CodeUnauthorized, "invalid API key")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(key.SecretHash), []byte(secret)) != nil {
		return nil, apperr.New(apperr.CodeUnauthorized, "invalid API key")
	}
	if !key.IsActive {
		return nil, apperr.New(apperr.CodeForbidden, "API key has been revoked")
	}
	now := s.now()
	if err := s.repo.TouchLastUsed(ctx, key.ID, now); err != nil {
		log.Warnf("[APIKeyService] 更新最后使用时间失败: id=%s, err=%v", key.ID, err)
	} else {
		key.LastUsedAt = &now
	}
	return key, nil
}

func (s *apiKeyService) Revoke(ctx context.Context, id string) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	log.Infof("[APIKeyService] 已吊销 API Key: id=%s", id)
	return nil
}

func validDepartment(d string) bool {
	for _, known := range model.Departments {
		if d == known {
			return true
		}
	}
	return false
}
