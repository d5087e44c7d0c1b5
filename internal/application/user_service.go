package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crmgate/crmgate/internal/domain/entity"
	"github.com/crmgate/crmgate/internal/domain/repository"
	"github.com/crmgate/crmgate/pkg/helpers"
)

var (
	ErrPhoneTaken      = errors.New("phone already registered")
	ErrSearchUnready   = errors.New("user search is not available")
	ErrStorageUnready  = errors.New("file storage is not available")
	ErrEmptySearchTerm = errors.New("search term is required")
)

// UpdateProfileInput carries optional profile fields; nil means unchanged.
type UpdateProfileInput struct {
	Email   *string
	Phone   *string
	Name    *string
	Surname *string
	Address *string
}

// UserSearchHit is one Elasticsearch result row.
type UserSearchHit struct {
	ID       string      `json:"id"`
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Surname  string      `json:"surname"`
	Phone    string      `json:"phone"`
	Role     entity.Role `json:"role"`
	IsActive bool        `json:"is_active"`
}

// UserService serves profile reads and writes, avatar uploads and the
// admin-facing user search. The search index mirrors the users table;
// indexing failures are logged, never surfaced.
type UserService struct {
	users     repository.UserRepository
	gcs       *storage.Client // optional
	gcsBucket string
	es        *elasticsearch.Client // optional
	esIndex   string
	logger    *logrus.Logger
}

func NewUserService(users repository.UserRepository, gcs *storage.Client, gcsBucket string, es *elasticsearch.Client, esIndex string, logger *logrus.Logger) *UserService {
	return &UserService{
		users:     users,
		gcs:       gcs,
		gcsBucket: gcsBucket,
		es:        es,
		esIndex:   esIndex,
		logger:    logger,
	}
}

// GetProfile returns the full profile for the given user id.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies the provided fields. Email and phone must remain
// unique across users; a clash with another account is a conflict.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if in.Email != nil && *in.Email != user.Email {
		if other, err := s.users.GetByEmail(ctx, *in.Email); err == nil && other.ID != userID {
			return nil, ErrEmailTaken
		} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		user.Email = *in.Email
	}
	if in.Phone != nil && *in.Phone != user.Phone {
		if other, err := s.users.GetByPhone(ctx, *in.Phone); err == nil && other.ID != userID {
			return nil, ErrPhoneTaken
		} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		user.Phone = *in.Phone
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Surname != nil {
		user.Surname = *in.Surname
	}
	if in.Address != nil {
		user.Address = *in.Address
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.IndexUser(user)
	return user, nil
}

// UploadAvatar stores the image in GCS under avatars/<userID>/<uuid><ext>
// and persists the public URL on the profile.
func (s *UserService) UploadAvatar(ctx context.Context, userID, filename, contentType string, r io.Reader) (*entity.User, error) {
	if s.gcs == nil || s.gcsBucket == "" {
		return nil, ErrStorageUnready
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	object := fmt.Sprintf("avatars/%s/%s%s", userID, uuid.NewString(), path.Ext(filename))
	url, err := helpers.UploadObject(ctx, s.gcs, s.gcsBucket, object, contentType, r)
	if err != nil {
		return nil, err
	}

	user.AvatarURL = url
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.IndexUser(user)
	return user, nil
}

// SearchUsers runs a multi_match query over the user index.
func (s *UserService) SearchUsers(ctx context.Context, term string, size int) ([]UserSearchHit, error) {
	if s.es == nil {
		return nil, ErrSearchUnready
	}
	if term == "" {
		return nil, ErrEmptySearchTerm
	}
	if size <= 0 || size > 50 {
		size = 20
	}

	query := map[string]any{
		"size": size,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  term,
				"fields": []string{"email^2", "name", "surname", "phone"},
				"type":   "best_fields",
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.esIndex),
		s.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search: %s", res.Status())
	}

	var out struct {
		Hits struct {
			Hits []struct {
				Source UserSearchHit `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}

	hits := make([]UserSearchHit, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		hits = append(hits, h.Source)
	}
	return hits, nil
}

// IndexUser upserts the user document into Elasticsearch. Best effort.
func (s *UserService) IndexUser(user *entity.User) {
	if s.es == nil {
		return
	}
	doc := UserSearchHit{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Surname:  user.Surname,
		Phone:    user.Phone,
		Role:     user.Role,
		IsActive: user.IsActive,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		res, err := s.es.Index(
			s.esIndex,
			bytes.NewReader(body),
			s.es.Index.WithContext(ctx),
			s.es.Index.WithDocumentID(user.ID),
			s.es.Index.WithRefresh("false"),
		)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("failed to index user")
			return
		}
		defer func() { _ = res.Body.Close() }()
		if res.IsError() {
			s.logger.WithField("user_id", user.ID).WithField("status", res.Status()).Warn("failed to index user")
		}
	}()
}
