package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/h7labs/imageforge/internal/config"
	"github.com/h7labs/imageforge/internal/models"
	"github.com/h7labs/imageforge/internal/provider"
	"github.com/h7labs/imageforge/internal/ration"
	"github.com/h7labs/imageforge/internal/storage"
)

// ImageGenerator is the provider gateway as the coordinator sees it.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (*provider.Result, error)
}

// OutageNotifier receives a signal when every configured provider has failed.
type OutageNotifier interface {
	ProviderOutage(ctx context.Context, err error)
}

// GenerationService coordinates one credit-gated generation: it locks the
// user's ledger row, refreshes the allowance, gates the provider call behind
// the balance, and persists the image record together with the decrement.
// A credit is charged iff a generation record is durably created.
type GenerationService struct {
	log      *slog.Logger
	ledger   LedgerStore
	store    storage.Store
	gateway  ImageGenerator
	notifier OutageNotifier
	maxDaily int
	period   time.Duration
	now      func() time.Time
}

// SubmitResult is the success outcome of one generation.
type SubmitResult struct {
	ImageID     int64
	ImageURL    string
	ProviderTag string
	Remaining   int
}

// CreditStatus is the authoritative ration state returned to dashboards.
type CreditStatus struct {
	Remaining      int
	Max            int
	NextEligibleAt *time.Time
}

func NewGenerationService(cfg config.Config, log *slog.Logger, ledger LedgerStore, store storage.Store, gateway ImageGenerator, notifier OutageNotifier) *GenerationService {
	return &GenerationService{
		log:      log,
		ledger:   ledger,
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		maxDaily: cfg.MaxDailyCredits,
		period:   cfg.RefillPeriod,
		now:      time.Now,
	}
}

// Submit runs the generation transaction for one user and prompt. The row
// lock is deliberately held across the provider call: a user's own concurrent
// requests serialize against each other, which is what guarantees no two of
// them charge the same credit. Other users are unaffected.
//
// On every non-nil Rejection the transaction has been rolled back: the ledger
// is untouched and no generation record exists.
func (s *GenerationService) Submit(ctx context.Context, userID int64, prompt string) (*SubmitResult, *Rejection) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, &Rejection{Kind: RejectInvalidInput, Message: "Prompt cannot be empty."}
	}

	tx, err := s.ledger.Begin(ctx)
	if err != nil {
		s.log.Error("begin generation tx", "user_id", userID, "err", err)
		return nil, s.unexpected()
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.Error("rollback generation tx", "user_id", userID, "err", rbErr)
			}
		}
	}()

	led, err := tx.LockLedger(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.log.Warn("generation for unknown user", "user_id", userID)
			return nil, &Rejection{Kind: RejectUnexpected, Message: "Account not found. Please login again."}
		}
		s.log.Error("lock ledger row", "user_id", userID, "err", err)
		return nil, s.unexpected()
	}

	now := s.now()
	remaining, refilled := ration.Refresh(led.Remaining, led.RefreshedAt, now, s.maxDaily, s.period)
	if refilled {
		if err := tx.ApplyRefill(ctx, userID, remaining, now); err != nil {
			s.log.Error("apply credit refill", "user_id", userID, "err", err)
			return nil, s.unexpected()
		}
		stamped := now
		led.RefreshedAt = &stamped
		s.log.Info("credits refreshed", "user_id", userID, "remaining", remaining)
	}

	if remaining <= 0 {
		rej := &Rejection{
			Kind:    RejectOutOfCredits,
			Message: "You have used all your daily credits. Please wait until tomorrow.",
		}
		if led.RefreshedAt != nil {
			rej.NextEligibleAt = ration.NextEligibleAt(*led.RefreshedAt, s.period)
		}
		return nil, rej
	}

	res, err := s.gateway.Generate(ctx, prompt)
	if err != nil {
		s.log.Error("provider gateway", "user_id", userID, "err", err)
		var exhausted *provider.ExhaustedError
		if errors.As(err, &exhausted) && s.notifier != nil {
			s.notifier.ProviderOutage(ctx, exhausted)
		}
		return nil, &Rejection{
			Kind:    RejectProviderUnavailable,
			Message: "Image generation is temporarily unavailable. Please try again later.",
		}
	}

	key := storage.ObjectKey(userID, now, res.Image.Seed, res.Image.Mime)
	ref, err := s.store.Save(ctx, key, res.Image.Data, res.Image.Mime)
	if err != nil {
		s.log.Error("save image bytes", "user_id", userID, "key", key, "err", err)
		return nil, &Rejection{
			Kind:    RejectStorageFailure,
			Message: "Failed to save the generated image. Please try again.",
		}
	}

	img := &models.Image{
		UserID:      userID,
		StorageRef:  ref,
		Prompt:      prompt,
		ProviderTag: res.Tag,
		CreatedAt:   now,
	}
	imageID, err := tx.InsertImage(ctx, img)
	if err != nil {
		s.log.Error("insert generation record", "user_id", userID, "err", err)
		s.discard(ctx, ref)
		return nil, &Rejection{
			Kind:    RejectStorageFailure,
			Message: "Failed to save the generated image. Please try again.",
		}
	}

	if err := tx.SetRemaining(ctx, userID, remaining-1); err != nil {
		s.log.Error("decrement credits", "user_id", userID, "err", err)
		s.discard(ctx, ref)
		return nil, s.unexpected()
	}

	if err := tx.Commit(); err != nil {
		s.log.Error("commit generation tx", "user_id", userID, "err", err)
		s.discard(ctx, ref)
		return nil, s.unexpected()
	}
	committed = true

	s.log.Info("generation completed",
		"user_id", userID, "image_id", imageID, "provider", res.Tag, "remaining", remaining-1)

	return &SubmitResult{
		ImageID:     imageID,
		ImageURL:    ref,
		ProviderTag: res.Tag,
		Remaining:   remaining - 1,
	}, nil
}

// Status reads the user's ration state, performing the same refresh the
// generation path does so the reported balance is authoritative.
func (s *GenerationService) Status(ctx context.Context, userID int64) (*CreditStatus, *Rejection) {
	tx, err := s.ledger.Begin(ctx)
	if err != nil {
		s.log.Error("begin status tx", "user_id", userID, "err", err)
		return nil, s.unexpected()
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	led, err := tx.LockLedger(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, &Rejection{Kind: RejectUnexpected, Message: "Account not found. Please login again."}
		}
		s.log.Error("lock ledger row", "user_id", userID, "err", err)
		return nil, s.unexpected()
	}

	now := s.now()
	remaining, refilled := ration.Refresh(led.Remaining, led.RefreshedAt, now, s.maxDaily, s.period)
	if refilled {
		if err := tx.ApplyRefill(ctx, userID, remaining, now); err != nil {
			s.log.Error("apply credit refill", "user_id", userID, "err", err)
			return nil, s.unexpected()
		}
		stamped := now
		led.RefreshedAt = &stamped
	}

	if err := tx.Commit(); err != nil {
		s.log.Error("commit status tx", "user_id", userID, "err", err)
		return nil, s.unexpected()
	}
	committed = true

	status := &CreditStatus{Remaining: remaining, Max: s.maxDaily}
	if remaining <= 0 && led.RefreshedAt != nil {
		next := ration.NextEligibleAt(*led.RefreshedAt, s.period)
		status.NextEligibleAt = &next
	}
	return status, nil
}

// discard removes image bytes whose generation record will never commit. The
// record-iff-bytes invariant tolerates a failed cleanup here (an orphan file)
// but never a record without bytes.
func (s *GenerationService) discard(ctx context.Context, ref string) {
	if err := s.store.Delete(ctx, ref); err != nil {
		s.log.Error("discard orphaned image bytes", "ref", ref, "err", err)
	}
}

func (s *GenerationService) unexpected() *Rejection {
	return &Rejection{Kind: RejectUnexpected, Message: "Something went wrong. Please try again."}
}
