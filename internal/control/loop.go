// Package control runs the adaptive control loop: sample both zones,
// discretize, pick an action, actuate, score the outcome and fold it
// back into the Q-table.
package control

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TIANLI0/QFan-Agent/internal/history"
	"github.com/TIANLI0/QFan-Agent/internal/qlearn"
	"github.com/TIANLI0/QFan-Agent/internal/reward"
	"github.com/TIANLI0/QFan-Agent/internal/telemetry"
	"github.com/TIANLI0/QFan-Agent/internal/types"
)

// ErrUnavailable marks a cycle with no usable sensor reading.
var ErrUnavailable = types.ErrUnavailable

// Sampler produces the raw zone readings.
type Sampler interface {
	Radiator(ctx context.Context) (float64, error)
	Storage(ctx context.Context) ([]types.DriveTemp, error)
}

// Actuator applies a speed to one fan channel group.
type Actuator interface {
	SetSpeed(ctx context.Context, group types.Group, percent int) error
}

// Notifier delivers best-effort operator notifications.
type Notifier interface {
	Notify(subject, message string)
}

// Recorder receives one telemetry record per cycle.
type Recorder interface {
	Record(telemetry.Record) error
}

// transition is a pending (s, a, r) awaiting its observed next state.
type transition struct {
	state  qlearn.State
	action qlearn.Action
	reward float64
}

// Loop owns all mutable learning state for the process lifetime and
// executes one cycle at a time; there is no concurrent mutator.
type Loop struct {
	cfg      types.Config
	lg       *zap.Logger
	sampler  Sampler
	actuator Actuator
	notifier Notifier
	recorder Recorder

	radHist  *history.Buffer
	chsHist  *history.Buffer
	table    *qlearn.Table
	space    *qlearn.Space
	policy   *qlearn.Policy
	rewards  *reward.Model
	override *Override

	pending *transition
	cycles  int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewLoop assembles a control loop. The table is the restored (or
// fresh) Q-table the loop takes ownership of.
func NewLoop(
	cfg types.Config,
	lg *zap.Logger,
	sampler Sampler,
	actuator Actuator,
	notifier Notifier,
	recorder Recorder,
	table *qlearn.Table,
	space *qlearn.Space,
	policy *qlearn.Policy,
) *Loop {
	return &Loop{
		cfg:      cfg,
		lg:       lg,
		sampler:  sampler,
		actuator: actuator,
		notifier: notifier,
		recorder: recorder,
		radHist:  history.NewBuffer(cfg.Bucketing.HistoryLength),
		chsHist:  history.NewBuffer(cfg.Bucketing.HistoryLength),
		table:    table,
		space:    space,
		policy:   policy,
		rewards:  reward.NewModel(cfg),
		override: NewOverride(cfg.Emergency),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Run executes cycles until ctx is cancelled, then performs a final
// Q-table save. Recoverable failures never escape the loop.
func (l *Loop) Run(ctx context.Context) error {
	l.notifier.Notify("Fan agent started",
		fmt.Sprintf("Q-learning fan agent active. Targets: radiator %.1f°C, storage %.1f°C.",
			l.cfg.Targets.Radiator, l.cfg.Targets.Storage))
	l.lg.Info("control loop started",
		zap.Float64("epsilon", l.policy.Epsilon()),
		zap.Int("actions", l.space.Len()),
		zap.Int("q_states", l.table.States()))

	for {
		// Cancellation may predate the first cycle.
		select {
		case <-ctx.Done():
			return l.shutdown()
		default:
		}

		delay := l.Cycle(ctx)
		l.sleep(ctx, delay)
	}
}

func (l *Loop) shutdown() error {
	l.lg.Info("shutting down, saving q-table", zap.Int("q_states", l.table.States()))
	err := l.table.Save(l.cfg.Paths.QTable)
	if err != nil {
		l.lg.Error("final q-table save failed", zap.Error(err))
	}
	l.notifier.Notify("Fan agent stopped", "Fan agent exited; learned policy saved.")
	return err
}

// Cycle runs one control cycle and returns how long to sleep before
// the next one.
func (l *Loop) Cycle(ctx context.Context) time.Duration {
	interval := time.Duration(l.cfg.Loop.IntervalSeconds) * time.Second
	backoff := time.Duration(l.cfg.Loop.BackoffSeconds) * time.Second

	radNow, chsNow, err := l.sample(ctx)
	if err != nil {
		l.lg.Warn("sampling failed, skipping cycle", zap.Error(err))
		return backoff
	}

	l.radHist.Push(radNow)
	l.chsHist.Push(chsNow)
	radAvg := l.radHist.Mean()
	chsAvg := l.chsHist.Mean()

	state := qlearn.EncodeState(radAvg, chsAvg, l.cfg.Bucketing.Step)

	action, explored := l.decide(state, radNow, chsNow)

	l.actuate(ctx, action)

	score := l.rewards.Score(radAvg, chsAvg, action)
	l.learn(state, action, score)
	l.policy.Decay()

	l.lg.Info("cycle",
		zap.Float64("rad_avg", radAvg),
		zap.Float64("chs_avg", chsAvg),
		zap.Int("fan_rad", action.Radiator),
		zap.Int("fan_chs", action.Storage),
		zap.Bool("explored", explored),
		zap.Float64("reward", score),
		zap.Float64("epsilon", l.policy.Epsilon()),
		zap.Int("q_states", l.table.States()))

	if err := l.recorder.Record(telemetry.Record{
		Time:    l.now(),
		RadAvg:  radAvg,
		ChsAvg:  chsAvg,
		FanRad:  action.Radiator,
		FanChs:  action.Storage,
		Reward:  score,
		Epsilon: l.policy.Epsilon(),
		QStates: l.table.States(),
	}); err != nil {
		l.lg.Warn("telemetry write failed", zap.Error(err))
	}

	l.cycles++
	if l.cycles%l.cfg.Loop.SaveIntervalCycles == 0 {
		if err := l.table.Save(l.cfg.Paths.QTable); err != nil {
			// The in-memory table stays authoritative; retried on the
			// next scheduled save.
			l.lg.Error("q-table save failed", zap.Error(err))
		} else {
			l.lg.Debug("q-table saved", zap.Int("q_states", l.table.States()))
		}
	}

	return interval
}

func (l *Loop) sample(ctx context.Context) (radNow, chsNow float64, err error) {
	callCtx, cancel := l.callContext(ctx)
	defer cancel()
	radNow, err = l.sampler.Radiator(callCtx)
	if err != nil {
		return 0, 0, fmt.Errorf("radiator: %w", err)
	}

	callCtx2, cancel2 := l.callContext(ctx)
	defer cancel2()
	drives, err := l.sampler.Storage(callCtx2)
	if err != nil {
		return 0, 0, fmt.Errorf("storage: %w", err)
	}
	if len(drives) == 0 {
		return 0, 0, fmt.Errorf("storage: %w", ErrUnavailable)
	}

	// The hottest drive governs the zone.
	chsNow = drives[0].Temp
	for _, d := range drives[1:] {
		if d.Temp > chsNow {
			chsNow = d.Temp
		}
	}
	return radNow, chsNow, nil
}

// decide applies the emergency guard before consulting the policy. The
// guard sees instantaneous readings so that a spike masked by the
// smoothing window still forces full cooling.
func (l *Loop) decide(state qlearn.State, radNow, chsNow float64) (qlearn.Action, bool) {
	forced, entered := l.override.Check(radNow, chsNow)
	if forced {
		if entered {
			l.lg.Warn("critical temperature, emergency cooling",
				zap.Float64("rad_now", radNow),
				zap.Float64("chs_now", chsNow))
			l.notifier.Notify("Critical temperature",
				fmt.Sprintf("Emergency cooling engaged. Radiator %.1f°C, storage %.1f°C.", radNow, chsNow))
		}
		return l.space.Max(), false
	}
	return l.policy.Choose(l.table, state)
}

// actuate applies the action to both groups. Failures are logged and
// the cycle continues: the learning step still scores the attempted
// action, the failure is surfaced separately.
func (l *Loop) actuate(ctx context.Context, a qlearn.Action) {
	callCtx, cancel := l.callContext(ctx)
	defer cancel()
	if err := l.actuator.SetSpeed(callCtx, types.GroupRadiator, a.Radiator); err != nil {
		l.lg.Error("actuation failed", zap.String("group", string(types.GroupRadiator)), zap.Error(err))
	}

	callCtx2, cancel2 := l.callContext(ctx)
	defer cancel2()
	if err := l.actuator.SetSpeed(callCtx2, types.GroupStorage, a.Storage); err != nil {
		l.lg.Error("actuation failed", zap.String("group", string(types.GroupStorage)), zap.Error(err))
	}
}

// learn folds the scored outcome into the table. In trailing mode the
// transition recorded last cycle is completed with the state observed
// now; in immediate mode the current state doubles as its own
// successor.
func (l *Loop) learn(state qlearn.State, action qlearn.Action, score float64) {
	alpha := l.cfg.QLearning.Alpha
	gamma := l.cfg.QLearning.Gamma

	if l.cfg.QLearning.UpdateMode == "immediate" {
		l.table.Update(state, action, score, state, alpha, gamma)
		return
	}

	if l.pending != nil {
		l.table.Update(l.pending.state, l.pending.action, l.pending.reward, state, alpha, gamma)
	}
	l.pending = &transition{state: state, action: action, reward: score}
}

func (l *Loop) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(l.cfg.Loop.CallTimeoutSeconds) * time.Second
	return context.WithTimeout(ctx, timeout)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
