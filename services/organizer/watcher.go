package organizer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"orgassist-backend/lib/scrapers/showroom"
	"orgassist-backend/lib/timezone"
)

func (s *Service) watch(ctx context.Context, run int, client *showroom.Client) {
	slog.Info(
		"watcher started",
		"interval", s.opts.Interval,
		"approval_pause", s.opts.ApprovalPause,
	)
	defer func() {
		s.mu.Lock()
		if s.run == run {
			s.state = StateStopped
		}
		s.mu.Unlock()
		slog.Info("watcher stopped")
	}()

	for {
		// the stop signal is only observed here, between cycles
		select {
		case <-ctx.Done():
			return
		default:
		}

		start := time.Now()
		report, err := s.runCycle(ctx, client)
		s.publish(report)
		if err != nil {
			s.mu.Lock()
			if s.run == run {
				s.lastErr = err.Error()
			}
			s.mu.Unlock()
			slog.Error("session lost, watcher stopping", "err", err)
			return
		}

		wait := s.opts.Interval - time.Since(start)
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// runCycle does one scan-and-approve pass. Steady-state trouble (scan
// transport errors, individual approval failures) is folded into the
// report and the loop keeps going; only a lost session bubbles up as an
// error and ends the run.
func (s *Service) runCycle(ctx context.Context, client *showroom.Client) (CycleReport, error) {
	report := CycleReport{Time: timezone.Now()}

	pending, err := client.PendingApprovals(ctx)
	if errors.Is(err, showroom.ErrSessionExpired) {
		report.Failures = append(report.Failures, Failure{
			Outcome: "session-expired",
			Reason:  err.Error(),
		})
		return report, err
	}
	if err != nil {
		slog.WarnContext(ctx, "scan failed, will retry next cycle", "err", err)
		report.Failures = append(report.Failures, Failure{
			Outcome: showroom.RequestFailed.String(),
			Reason:  err.Error(),
		})
		return report, nil
	}

	report.Found = len(pending)
	if len(pending) == 0 {
		slog.InfoContext(ctx, "no pending approvals")
		return report, nil
	}
	slog.InfoContext(ctx, "pending approvals found", "count", len(pending))

	for _, record := range pending {
		outcome, err := client.Approve(ctx, record)
		if outcome == showroom.Approved {
			report.Approved++
			slog.InfoContext(
				ctx, "approved",
				"room", record.RoomName,
				"room_id", record.RoomId,
				"event", record.EventName,
				"event_id", record.EventId,
			)
		} else {
			report.Failures = append(report.Failures, Failure{
				RoomId:  record.RoomId,
				EventId: record.EventId,
				Outcome: outcome.String(),
				Reason:  err.Error(),
			})
			slog.WarnContext(
				ctx, "approval failed",
				"room_id", record.RoomId,
				"event_id", record.EventId,
				"outcome", outcome.String(),
				"err", err,
			)
		}

		// fixed pause after every attempt, success or not, to stay
		// under the site's anti-automation radar
		time.Sleep(s.opts.ApprovalPause)
	}

	return report, nil
}

func (s *Service) publish(report CycleReport) {
	s.mu.Lock()
	s.recent = append(s.recent, report)
	if len(s.recent) > recentReportLimit {
		s.recent = s.recent[len(s.recent)-recentReportLimit:]
	}
	s.mu.Unlock()

	select {
	case s.reports <- report:
	default:
	}
}
