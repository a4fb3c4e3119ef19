// Package expiration runs the daily scan that notifies accounts whose trial or
// subscription is about to expire or has recently expired.
package expiration

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dealer-workers/internal/clock"
	"dealer-workers/internal/common/audit"
	"dealer-workers/internal/common/errors"
	"dealer-workers/internal/common/lock"
	"dealer-workers/internal/common/logger"
	"dealer-workers/internal/common/metrics"
	"dealer-workers/internal/common/observability"
	"dealer-workers/internal/models"
	"dealer-workers/internal/notify"
	"dealer-workers/internal/store"
	"dealer-workers/internal/template"

	"github.com/google/uuid"
)

// JobName labels the job in logs, metrics and the run lock.
const JobName = "expiration-triggers"

type TemplateStore interface {
	ListActiveByKinds(ctx context.Context, kinds []models.TemplateKind) ([]models.NotificationTemplate, error)
}

// AccountStore selects accounts by the platform day of their effective expiry,
// classified with clock.DayOf.
type AccountStore interface {
	ListByEffectiveExpiryDay(ctx context.Context, day clock.Date) ([]models.Account, error)
}

type UsageLogStore interface {
	Exists(ctx context.Context, templateID, accountID string, day clock.Date) (bool, error)
	Insert(ctx context.Context, entry models.TemplateUsageLog) error
	CountForDay(ctx context.Context, day clock.Date) (int, error)
}

// Deps are the job's collaborators. Locker, Audit and Observability are optional.
type Deps struct {
	Templates     TemplateStore
	Accounts      AccountStore
	UsageLogs     UsageLogStore
	Pusher        notify.Pusher
	Mailer        notify.Mailer
	Clock         clock.Clock
	Locker        lock.Locker
	Audit         audit.Sink
	Observability *observability.Observability
}

type Config struct {
	Concurrency int
	LockTTL     time.Duration
	PlansURL    string
}

// State is the lifecycle of the most recent run.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// RunReport summarizes one run.
type RunReport struct {
	Date        clock.Date
	Templates   int
	Matched     int
	Sent        int
	Skipped     int
	Failed      int
	Recorded    int // usage rows stored for the day, earlier runs included
	LockSkipped bool
	Duration    time.Duration
}

func (r *RunReport) fields() map[string]interface{} {
	return map[string]interface{}{
		"date":        r.Date.String(),
		"templates":   r.Templates,
		"matched":     r.Matched,
		"sent":        r.Sent,
		"skipped":     r.Skipped,
		"failed":      r.Failed,
		"recorded":    r.Recorded,
		"lockSkipped": r.LockSkipped,
		"duration":    r.Duration.String(),
	}
}

type Job struct {
	deps   Deps
	cfg    Config
	logger logger.Logger
	state  atomic.Int32
	newID  func() uuid.UUID
}

func NewJob(deps Deps, cfg Config, log logger.Logger) *Job {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Audit == nil {
		deps.Audit = audit.Discard{}
	}
	if deps.Pusher == nil {
		deps.Pusher = notify.DisabledPusher{}
	}
	if deps.Mailer == nil {
		deps.Mailer = notify.DisabledMailer{}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Hour
	}
	return &Job{
		deps:   deps,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"job": JobName}),
		newID:  uuid.New,
	}
}

// State returns the state of the most recent run.
func (j *Job) State() State {
	return State(j.state.Load())
}

// Run scans for the current platform day.
func (j *Job) Run(ctx context.Context) (*RunReport, error) {
	return j.RunForDate(ctx, clock.Today(j.deps.Clock))
}

// RunForDate scans as if today were the given day. Usage rows are keyed by it.
func (j *Job) RunForDate(ctx context.Context, today clock.Date) (*RunReport, error) {
	start := time.Now()
	j.state.Store(int32(StateRunning))
	metrics.JobRunsActive.WithLabelValues(JobName).Inc()
	defer metrics.JobRunsActive.WithLabelValues(JobName).Dec()

	report := &RunReport{Date: today}
	log := j.logger.WithFields(map[string]interface{}{"date": today.String()})
	log.Info("expiration scan started", nil)

	err := j.run(ctx, today, report, log)
	report.Duration = time.Since(start)

	status := StateSuccess
	if err != nil {
		status = StateFailed
		log.WithError(err).Error("expiration scan failed", map[string]interface{}{
			"code":     string(errors.CodeOf(err)),
			"category": errors.GetErrorCategory(errors.CodeOf(err)),
		})
	} else {
		log.Info("expiration scan finished", report.fields())
	}
	j.state.Store(int32(status))
	j.record(ctx, report, status)

	return report, err
}

func (j *Job) record(ctx context.Context, report *RunReport, status State) {
	metrics.JobRunsTotal.WithLabelValues(JobName, status.String()).Inc()
	metrics.JobRunDuration.WithLabelValues(JobName).Observe(report.Duration.Seconds())

	obs := j.deps.Observability
	obs.RecordJobProcessed(ctx, JobName, status.String())
	obs.RecordJobDuration(ctx, JobName, report.Duration, status.String())
	obs.RecordAccounts(ctx, JobName, "sent", report.Sent)
	obs.RecordAccounts(ctx, JobName, "skipped", report.Skipped)
	obs.RecordAccounts(ctx, JobName, "failed", report.Failed)
}

// LockKey is the run lock for a day.
func LockKey(day clock.Date) string {
	return fmt.Sprintf("lock:%s:%s", JobName, day.String())
}

type task struct {
	tmpl    models.NotificationTemplate
	account models.Account
}

func (j *Job) run(ctx context.Context, today clock.Date, report *RunReport, log logger.Logger) error {
	if j.deps.Locker != nil {
		lease, err := j.deps.Locker.Acquire(ctx, LockKey(today), j.cfg.LockTTL)
		switch {
		case stderrors.Is(err, lock.ErrNotAcquired):
			log.Info("another instance holds the run lock, skipping", nil)
			report.LockSkipped = true
			return nil
		case err != nil:
			log.WithError(err).Warn("run lock unavailable, continuing without it", nil)
		default:
			defer func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := lease.Release(releaseCtx); err != nil {
					log.WithError(err).Warn("failed to release run lock", nil)
				}
			}()
		}
	}

	templates, err := j.deps.Templates.ListActiveByKinds(ctx, models.ExpirationKinds())
	if err != nil {
		return errors.NewTemplateLoadFailedError(err)
	}
	report.Templates = len(templates)

	var tasks []task
	for _, tmpl := range templates {
		target := today.AddDays(-tmpl.DaysOffset)

		accounts, err := j.deps.Accounts.ListByEffectiveExpiryDay(ctx, target)
		if err != nil {
			return errors.NewAccountQueryFailedError(err)
		}

		log.Debug("template matched accounts", map[string]interface{}{
			"templateId": tmpl.ID,
			"kind":       string(tmpl.Kind),
			"daysOffset": tmpl.DaysOffset,
			"targetDate": target.String(),
			"accounts":   len(accounts),
		})
		for _, acc := range accounts {
			tasks = append(tasks, task{tmpl: tmpl, account: acc})
		}
	}
	report.Matched = len(tasks)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, j.cfg.Concurrency)
	)
	for _, t := range tasks {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(t task) {
			defer wg.Done()
			defer func() { <-sem }()

			out := j.process(ctx, today, t, log)
			metrics.NotificationsTotal.WithLabelValues(string(t.tmpl.Kind), out.String()).Inc()

			mu.Lock()
			switch out {
			case outcomeSent:
				report.Sent++
			case outcomeSkipped:
				report.Skipped++
			default:
				report.Failed++
			}
			mu.Unlock()
		}(t)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("expiration scan interrupted: %w", err)
	}

	recorded, err := j.deps.UsageLogs.CountForDay(ctx, today)
	if err != nil {
		log.WithError(err).Warn("could not count usage rows for the day", nil)
		return nil
	}
	report.Recorded = recorded
	return nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (o outcome) String() string {
	switch o {
	case outcomeSent:
		return "sent"
	case outcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// process handles one (template, account) pair. Failures are logged here and
// reported as outcomeFailed; they never stop the run.
func (j *Job) process(ctx context.Context, today clock.Date, t task, log logger.Logger) outcome {
	log = log.WithFields(map[string]interface{}{
		"templateId": t.tmpl.ID,
		"accountId":  t.account.ID,
	})

	done, err := j.deps.UsageLogs.Exists(ctx, t.tmpl.ID, t.account.ID, today)
	if err != nil {
		log.Error("usage log lookup failed", map[string]interface{}{
			"error": errors.NewUsageLogFailedError(err).Details,
		})
		return outcomeFailed
	}
	if done {
		log.Debug("already notified today", nil)
		return outcomeSkipped
	}

	msg, err := j.render(t, log)
	if err != nil {
		log.WithError(err).Error("template render failed", nil)
		return outcomeFailed
	}

	channels := j.dispatch(ctx, t.account, msg, log)
	if len(channels) == 0 {
		log.Warn("no channel delivered the notification", map[string]interface{}{
			"error": errors.NewNotificationSendFailedError("all", fmt.Errorf("push and email failed")).Details,
		})
		return outcomeFailed
	}

	entry := models.TemplateUsageLog{
		ID:          j.newID(),
		TemplateID:  t.tmpl.ID,
		AccountID:   t.account.ID,
		TriggerDate: today.UTCMidnight(),
		SentAt:      j.deps.Clock.Now().UTC(),
		Channel:     strings.Join(channels, ","),
		Success:     true,
	}
	if err := j.deps.UsageLogs.Insert(ctx, entry); err != nil {
		if stderrors.Is(err, store.ErrDuplicateUsage) {
			log.Info("usage already recorded by a concurrent run", nil)
			return outcomeSent
		}
		log.Error("usage log insert failed", map[string]interface{}{
			"error":    errors.NewUsageLogFailedError(err).Details,
			"channels": entry.Channel,
		})
		return outcomeFailed
	}

	if err := j.deps.Audit.Write(ctx, audit.NewRecord(entry, t.tmpl)); err != nil {
		log.WithError(err).Warn("audit write failed", nil)
	}

	log.Info("notification sent", map[string]interface{}{"channels": entry.Channel})
	return outcomeSent
}

func (j *Job) render(t task, log logger.Logger) (template.Message, error) {
	ctx := template.BuildContext(template.Facts{
		UserName:       t.account.OwnerName,
		ExpirationDate: t.account.EffectiveExpiry(),
		PlanName:       t.account.PlanName,
		AccountStatus:  t.account.Status,
		PlansLink:      j.cfg.PlansURL,
	})
	msg := template.RenderMessage(t.tmpl.Title, t.tmpl.Body, ctx)

	if unknown := template.UnknownPlaceholders(t.tmpl.Title + t.tmpl.Body); len(unknown) > 0 {
		log.Warn("template references unknown variables", map[string]interface{}{
			"variables": unknown,
		})
	}
	if strings.TrimSpace(msg.Body) == "" {
		return msg, errors.NewTemplateRenderFailedError(t.tmpl.ID, fmt.Errorf("rendered body is empty"))
	}
	return msg, nil
}

// dispatch sends push then email and returns the channels that delivered.
func (j *Job) dispatch(ctx context.Context, acc models.Account, msg template.Message, log logger.Logger) []string {
	var channels []string

	if j.deps.Pusher.SendPush(ctx, acc.ID, msg.Title, msg.Body) {
		channels = append(channels, models.ChannelPush)
	}

	if acc.OwnerEmail == "" {
		log.Debug("account owner has no email address", nil)
		return channels
	}
	res := j.deps.Mailer.SendEmail(ctx, acc.OwnerEmail, msg.Title, msg.Body)
	if res.Sent {
		channels = append(channels, models.ChannelEmail)
	} else {
		log.Warn("email not delivered", map[string]interface{}{"error": res.Error})
	}
	return channels
}
