package scheme

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/govscheme-portal/internal/application/eligibility"
	"github.com/govscheme-portal/internal/application/notification"
	"github.com/govscheme-portal/internal/domain"
	"github.com/govscheme-portal/internal/infrastructure/metrics"
	"github.com/govscheme-portal/internal/infrastructure/smtp"
	"github.com/govscheme-portal/internal/pkg/id"
	"github.com/govscheme-portal/internal/pkg/validate"
	"golang.org/x/sync/errgroup"
)

// defaultFanoutConcurrency bounds parallel SMTP sends when none is configured.
const defaultFanoutConcurrency = 8

// EventSchemeCreated is the event_type attribute on scheme announcements.
const EventSchemeCreated = "scheme.created"

type Service interface {
	ListActive(ctx context.Context) ([]domain.Scheme, error)
	Get(ctx context.Context, schemeID string) (*domain.Scheme, error)
	ListEligible(ctx context.Context, userID string) ([]domain.Scheme, error)
	Search(ctx context.Context, query string) ([]domain.Scheme, error)
	ListByCategory(ctx context.Context, category string) ([]domain.Scheme, error)
	Create(ctx context.Context, in domain.SchemeInput) (*domain.Scheme, error)
	Update(ctx context.Context, schemeID string, in domain.SchemeInput) (*domain.Scheme, error)
	Delete(ctx context.Context, schemeID string) error
	AttachDocument(ctx context.Context, schemeID, kind string, doc Document) (*domain.Scheme, error)
}

// Document is an uploaded file destined for object storage.
type Document struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type schemeStore interface {
	Put(ctx context.Context, s *domain.Scheme) error
	Get(ctx context.Context, schemeID string) (*domain.Scheme, error)
	ListActive(ctx context.Context) ([]domain.Scheme, error)
	ListByCategory(ctx context.Context, category string) ([]domain.Scheme, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	ScanAll(ctx context.Context) ([]domain.User, error)
}

type documentStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

type announcer interface {
	Publish(ctx context.Context, eventType, subject, message string) error
}

type taskQueue interface {
	Submit(kind string, task notification.Task)
}

type service struct {
	repo      schemeStore
	users     userStore
	documents documentStore
	announcer announcer
	queue     taskQueue
	mailer    smtp.Mailer
	composer  *notification.Composer
	metrics   *metrics.Metrics

	fanoutLimit int
}

// ServiceDeps wires the scheme service. Documents and Announcer may be nil,
// which disables uploads and topic announcements respectively.
type ServiceDeps struct {
	SchemeRepo schemeStore
	UserRepo   userStore
	Documents  documentStore
	Announcer  announcer
	Queue      taskQueue
	Mailer     smtp.Mailer
	Composer   *notification.Composer
	Metrics    *metrics.Metrics

	// FanoutConcurrency caps parallel sends per new scheme. Zero uses the default.
	FanoutConcurrency int
}

func NewService(deps ServiceDeps) Service {
	limit := deps.FanoutConcurrency
	if limit < 1 {
		limit = defaultFanoutConcurrency
	}
	return &service{
		fanoutLimit: limit,
		repo:        deps.SchemeRepo,
		users:       deps.UserRepo,
		documents:   deps.Documents,
		announcer:   deps.Announcer,
		queue:       deps.Queue,
		mailer:      deps.Mailer,
		composer:    deps.Composer,
		metrics:     deps.Metrics,
	}
}

func (s *service) ListActive(ctx context.Context) ([]domain.Scheme, error) {
	return s.repo.ListActive(ctx)
}

func (s *service) Get(ctx context.Context, schemeID string) (*domain.Scheme, error) {
	return s.repo.Get(ctx, schemeID)
}

func (s *service) ListEligible(ctx context.Context, userID string) ([]domain.Scheme, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return eligibility.Filter(u, active), nil
}

// Search matches query case-insensitively against name, description and category
// of active schemes.
func (s *service) Search(ctx context.Context, query string) ([]domain.Scheme, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	out := make([]domain.Scheme, 0, len(active))
	for _, sc := range active {
		if strings.Contains(strings.ToLower(sc.Name), q) ||
			strings.Contains(strings.ToLower(sc.Description), q) ||
			strings.Contains(strings.ToLower(sc.Category), q) {
			out = append(out, sc)
		}
	}
	return out, nil
}

// ListByCategory returns exact category matches, including inactive schemes.
func (s *service) ListByCategory(ctx context.Context, category string) ([]domain.Scheme, error) {
	return s.repo.ListByCategory(ctx, category)
}

func (s *service) Create(ctx context.Context, in domain.SchemeInput) (*domain.Scheme, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}
	sc := in.Scheme()
	now := time.Now().UTC()
	sc.SchemeID = id.New()
	sc.CreatedAt = now
	sc.UpdatedAt = now
	if err := s.repo.Put(ctx, &sc); err != nil {
		return nil, err
	}

	s.queue.Submit(notification.KindSchemeFanout, s.fanout(sc))
	if s.announcer != nil {
		s.queue.Submit(notification.KindSchemeAnnounce, s.announce(sc))
	}
	return &sc, nil
}

// Update replaces every field except the id and creation time.
func (s *service) Update(ctx context.Context, schemeID string, in domain.SchemeInput) (*domain.Scheme, error) {
	if err := checkInput(in); err != nil {
		return nil, err
	}
	existing, err := s.repo.Get(ctx, schemeID)
	if err != nil {
		return nil, err
	}
	sc := in.Scheme()
	sc.SchemeID = existing.SchemeID
	sc.CreatedAt = existing.CreatedAt
	sc.UpdatedAt = time.Now().UTC()
	if err := s.repo.Put(ctx, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Delete deactivates the scheme. It stays retrievable by id.
func (s *service) Delete(ctx context.Context, schemeID string) error {
	sc, err := s.repo.Get(ctx, schemeID)
	if err != nil {
		return err
	}
	sc.Active = false
	sc.UpdatedAt = time.Now().UTC()
	return s.repo.Put(ctx, sc)
}

func (s *service) AttachDocument(ctx context.Context, schemeID, kind string, doc Document) (*domain.Scheme, error) {
	if kind != domain.DocumentPDF && kind != domain.DocumentImage {
		return nil, fmt.Errorf("document kind must be %q or %q: %w", domain.DocumentPDF, domain.DocumentImage, domain.ErrBadRequest)
	}
	name := path.Base(strings.ReplaceAll(doc.Filename, `\`, "/"))
	if name == "" || name == "." || name == "/" {
		return nil, fmt.Errorf("file name is required: %w", domain.ErrBadRequest)
	}
	if s.documents == nil {
		return nil, fmt.Errorf("document storage is not configured")
	}
	sc, err := s.repo.Get(ctx, schemeID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("schemes/%s/%s/%s", sc.SchemeID, kind, name)
	url, err := s.documents.Upload(ctx, key, doc.Body, doc.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}
	if kind == domain.DocumentPDF {
		sc.PDFURL = url
	} else {
		sc.ImageURL = url
	}
	sc.UpdatedAt = time.Now().UTC()
	if err := s.repo.Put(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func checkInput(in domain.SchemeInput) error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	if in.MinAge != nil && in.MaxAge != nil && *in.MinAge > *in.MaxAge {
		return fmt.Errorf("min_age must not exceed max_age: %w", domain.ErrBadRequest)
	}
	return nil
}

// fanout emails every verified, active and eligible user about sc. Sends run
// with bounded concurrency inside the task, so the recipient count is not
// limited by the dispatcher queue. A failed send is logged and counted and
// never stops the rest.
func (s *service) fanout(sc domain.Scheme) notification.Task {
	return func(ctx context.Context) error {
		users, err := s.users.ScanAll(ctx)
		if err != nil {
			return fmt.Errorf("load users for scheme %s: %w", sc.SchemeID, err)
		}

		var (
			g            errgroup.Group
			sent, failed atomic.Int64
		)
		g.SetLimit(s.fanoutLimit)
		for i := range users {
			u := users[i]
			if !u.EmailVerified || !u.Active || !eligibility.IsEligible(&u, &sc) {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			msg, err := s.composer.NewScheme(&u, &sc)
			if err != nil {
				failed.Add(1)
				slog.Warn("could not render scheme email", "scheme_id", sc.SchemeID, "user_id", u.UserID, "err", err)
				continue
			}
			g.Go(func() error {
				if err := s.mailer.SendEmail(msg.To, msg.Subject, msg.HTML); err != nil {
					failed.Add(1)
					slog.Warn("scheme email failed", "scheme_id", sc.SchemeID, "user_id", u.UserID, "err", err)
					return nil
				}
				sent.Add(1)
				return nil
			})
		}
		_ = g.Wait()

		s.metrics.AddFanoutEmails(int(sent.Load()), int(failed.Load()))
		slog.Info("scheme fanout finished", "scheme_id", sc.SchemeID, "sent", sent.Load(), "failed", failed.Load())
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("fanout for scheme %s interrupted: %w", sc.SchemeID, err)
		}
		return nil
	}
}

type announcement struct {
	SchemeID string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Created  string `json:"created"`
}

func (s *service) announce(sc domain.Scheme) notification.Task {
	return func(ctx context.Context) error {
		body, err := json.Marshal(announcement{
			SchemeID: sc.SchemeID,
			Name:     sc.Name,
			Category: sc.Category,
			Created:  sc.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		return s.announcer.Publish(ctx, EventSchemeCreated, "New scheme: "+sc.Name, string(body))
	}
}
