package greeting

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"cqrskit/internal/infra/cqrs"
	"cqrskit/internal/infra/kernel"
)

// NoteKey is the task-state key SayHello leaves for the actions it dispatches.
const NoteKey = "greeting.note"

type GreetingService struct {
	repo     Store
	commands *cqrs.CommandGateway
	queries  *cqrs.QueryGateway
	events   *cqrs.EventGateway
	logger   *zap.Logger
}

func NewGreetingService(repo Store, commands *cqrs.CommandGateway, queries *cqrs.QueryGateway, events *cqrs.EventGateway, logger *zap.Logger) *GreetingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GreetingService{
		repo:     repo,
		commands: commands,
		queries:  queries,
		events:   events,
		logger:   logger,
	}
}

// Register binds every greeting handler on router.
func (s *GreetingService) Register(router *cqrs.Router) error {
	return multierr.Combine(
		router.RegisterFunc(SayHello{}, s.sayHello, kernel.Ctx(), kernel.RawState(), kernel.Payload()),
		router.RegisterFunc(Farewell{}, s.farewell, kernel.Ctx(), kernel.Payload()),
		router.RegisterFunc(CountGreetings{}, s.countGreetings, kernel.Ctx(), kernel.Payload(), kernel.StateKey(NoteKey)),
		cqrs.Handle(router, s.slowQuery),
		router.RegisterFunc(GreetingRecorded{}, s.onRecorded, kernel.Ctx(), kernel.Payload()),
		router.RegisterFunc(Greeted{}, s.onGreeted, kernel.Ctx(), kernel.Payload(), kernel.CurrentTask()),
	)
}

// Greet sends SayHello on the caller goroutine.
func (s *GreetingService) Greet(ctx context.Context, name string) (string, error) {
	return cqrs.As[string](s.commands.Send(ctx, SayHello{Name: name}))
}

func (s *GreetingService) Count(ctx context.Context, name string) (GreetingCount, error) {
	return cqrs.As[GreetingCount](s.queries.Query(ctx, CountGreetings{Name: name}))
}

func (s *GreetingService) Audit(ctx context.Context) ([]AuditEntry, error) {
	return s.repo.Audit(ctx)
}

// =======================================================
// Handlers
// =======================================================

func (s *GreetingService) sayHello(ctx context.Context, state *kernel.State, cmd SayHello) (string, error) {
	// 1. leave a note for the nested dispatches
	note := "hello " + cmd.Name
	state.Set(NoteKey, note)

	// 2. nested query, same task state
	before, err := cqrs.As[GreetingCount](s.queries.Query(ctx, CountGreetings{Name: cmd.Name}))
	if err != nil {
		return "", err
	}

	// 3. synchronous domain event updates the count
	if err := s.events.Publish(ctx, GreetingRecorded{Name: cmd.Name, Note: note}); err != nil {
		return "", err
	}

	// 4. fire-and-forget audit
	msg := "Hi " + cmd.Name
	if err := s.events.Publish(ctx, Greeted{Name: cmd.Name, Message: msg}); err != nil {
		return "", err
	}

	s.logger.Debug("greeted", zap.String("name", cmd.Name), zap.Int("previous", before.Count))
	return msg, nil
}

func (s *GreetingService) farewell(ctx context.Context, cmd Farewell) (cqrs.Either, error) {
	n, err := s.repo.Count(ctx, cmd.Name)
	if err != nil {
		return cqrs.Either{}, err
	}
	if n == 0 {
		return cqrs.Left(cqrs.NotFound("name", fmt.Sprintf("%s was never greeted", cmd.Name))), nil
	}
	if err := s.repo.Forget(ctx, cmd.Name); err != nil {
		return cqrs.Either{}, err
	}
	return cqrs.Right("Bye " + cmd.Name), nil
}

// countGreetings reports the note of the dispatch it runs in, or the last
// recorded one when called on its own.
func (s *GreetingService) countGreetings(ctx context.Context, q CountGreetings, note string) (GreetingCount, error) {
	n, err := s.repo.Count(ctx, q.Name)
	if err != nil {
		return GreetingCount{}, err
	}
	if note == "" {
		if note, err = s.repo.LastNote(ctx, q.Name); err != nil {
			return GreetingCount{}, err
		}
	}
	return GreetingCount{Name: q.Name, Count: n, Note: note}, nil
}

func (s *GreetingService) slowQuery(ctx context.Context, q SlowQuery) (any, error) {
	delay := time.Duration(q.DelayMS) * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return fmt.Sprintf("waited %s", delay), nil
}

func (s *GreetingService) onRecorded(ctx context.Context, e GreetingRecorded) (int, error) {
	return s.repo.Record(ctx, e.Name, e.Note)
}

func (s *GreetingService) onGreeted(ctx context.Context, e Greeted, task *kernel.Task) error {
	if err := s.repo.Append(ctx, AuditEntry{Name: e.Name, Message: e.Message, At: time.Now()}); err != nil {
		return err
	}
	s.logger.Info("greeting audited",
		zap.String("name", e.Name),
		zap.String("task_id", task.ID()),
		zap.Int("depth", task.Depth()),
	)
	return nil
}
