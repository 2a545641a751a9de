package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"walletbot/internal/metrics"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	ErrNoPendingBroadcast = errors.New("no pending broadcast")
	ErrNoRecipients       = errors.New("no recipients")
	ErrEmptyBroadcast     = errors.New("broadcast message is empty")
)

type PendingBroadcast struct {
	Message    string
	Recipients []int64
	CreatedAt  time.Time
}

type DeliveryFailure struct {
	UserID int64
	Err    error
}

type BroadcastReport struct {
	Total  int
	Sent   int
	Failed []DeliveryFailure
}

// BroadcastService sends admin announcements to every known user. A broadcast is
// prepared first and only delivered on confirmation by the same admin.
type BroadcastService struct {
	wallet    *WalletService
	admins    *AdminRegistry
	messenger Messenger
	limiter   *rate.Limiter
	log       *logrus.Logger

	mu      sync.Mutex
	pending map[int64]PendingBroadcast
}

func NewBroadcastService(wallet *WalletService, admins *AdminRegistry, messenger Messenger, ratePerSecond float64, log *logrus.Logger) *BroadcastService {
	return &BroadcastService{
		wallet:    wallet,
		admins:    admins,
		messenger: messenger,
		limiter:   rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		log:       log,
		pending:   make(map[int64]PendingBroadcast),
	}
}

// Prepare stages a broadcast for adminID, replacing any earlier one.
func (s *BroadcastService) Prepare(adminID int64, message string) (PendingBroadcast, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return PendingBroadcast{}, ErrEmptyBroadcast
	}
	ids := s.wallet.UserIDs()
	if len(ids) == 0 {
		return PendingBroadcast{}, ErrNoRecipients
	}
	pb := PendingBroadcast{Message: message, Recipients: ids, CreatedAt: time.Now()}
	s.mu.Lock()
	s.pending[adminID] = pb
	s.mu.Unlock()
	return pb, nil
}

func (s *BroadcastService) Pending(adminID int64) (PendingBroadcast, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pb, ok := s.pending[adminID]
	return pb, ok
}

// Cancel drops the admin's staged broadcast and reports whether there was one.
func (s *BroadcastService) Cancel(adminID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[adminID]
	delete(s.pending, adminID)
	return ok
}

func (s *BroadcastService) Confirm(ctx context.Context, adminID int64) (*BroadcastReport, error) {
	s.mu.Lock()
	pb, ok := s.pending[adminID]
	delete(s.pending, adminID)
	s.mu.Unlock()
	if !ok {
		return nil, ErrNoPendingBroadcast
	}

	recipients := mergeIDs(pb.Recipients, s.admins.List())
	text := "📢 Broadcast Message\n\n" + pb.Message + "\n\nThis is an official broadcast from the bot administrators."
	s.log.WithFields(logrus.Fields{"admin_id": adminID, "recipients": len(recipients)}).Info("broadcast started")
	report := s.deliver(ctx, recipients, text)
	s.log.WithFields(logrus.Fields{"admin_id": adminID, "sent": report.Sent, "failed": len(report.Failed)}).Info("broadcast finished")
	return report, nil
}

// Test sends the message to admins only.
func (s *BroadcastService) Test(ctx context.Context, message string) (*BroadcastReport, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyBroadcast
	}
	admins := s.admins.List()
	if len(admins) == 0 {
		return nil, ErrNoRecipients
	}
	text := "🧪 Test Broadcast\n\n" + message + "\n\nThis is a test broadcast sent only to administrators."
	return s.deliver(ctx, admins, text), nil
}

func (s *BroadcastService) deliver(ctx context.Context, recipients []int64, text string) *BroadcastReport {
	report := &BroadcastReport{Total: len(recipients)}
	for i, id := range recipients {
		if err := s.limiter.Wait(ctx); err != nil {
			for _, rest := range recipients[i:] {
				report.Failed = append(report.Failed, DeliveryFailure{UserID: rest, Err: err})
			}
			metrics.BroadcastDeliveries.WithLabelValues("aborted").Add(float64(len(recipients) - i))
			break
		}
		if err := s.messenger.SendText(ctx, id, text); err != nil {
			s.log.WithError(err).WithField("user_id", id).Warn("broadcast delivery failed")
			report.Failed = append(report.Failed, DeliveryFailure{UserID: id, Err: err})
			metrics.BroadcastDeliveries.WithLabelValues("failed").Inc()
			continue
		}
		report.Sent++
		metrics.BroadcastDeliveries.WithLabelValues("sent").Inc()
	}
	return report
}

func mergeIDs(a, b []int64) []int64 {
	seen := make(map[int64]struct{}, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for _, list := range [][]int64{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
