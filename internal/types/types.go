// Package types defines the shared configuration and data types used
// across the QFan agent.
package types

import (
	"errors"
	"time"
)

// ErrUnavailable reports that a sensor could not produce a reading.
// The control loop treats it like any other sampling failure: back off
// and retry, nothing actuated or learned.
var ErrUnavailable = errors.New("sensor unavailable")

// Group identifies one fan channel group / temperature zone.
type Group string

const (
	GroupRadiator Group = "radiator"
	GroupStorage  Group = "storage"
)

// TemperatureSample is a single raw reading from one zone.
type TemperatureSample struct {
	Value float64   `json:"value"` // °C
	Time  time.Time `json:"time"`
}

// DriveTemp is one storage device temperature reading.
type DriveTemp struct {
	Device string  `json:"device"` // e.g. "nvme0n1"
	Temp   float64 `json:"temp"`   // °C
}

// FanRange describes the valid speed range of one fan group, in percent.
type FanRange struct {
	Min  int `json:"min"`
	Max  int `json:"max"`
	Step int `json:"step"`
}

// FansConfig holds the per-group fan ranges.
type FansConfig struct {
	Radiator FanRange `json:"radiator"`
	Storage  FanRange `json:"storage"`
}

// TargetsConfig holds the per-zone target temperatures.
type TargetsConfig struct {
	Radiator float64 `json:"radiator"` // °C
	Storage  float64 `json:"storage"`  // °C
}

// HysteresisConfig holds the per-zone tolerance band widths.
type HysteresisConfig struct {
	Radiator float64 `json:"radiator"` // °C
	Storage  float64 `json:"storage"`  // °C
}

// RewardBands describes the piecewise reward table for one zone. Errors
// up to the hysteresis band earn PerfectBase minus PerfectSlope per
// degree; the excellent and good bands earn their own base minus slope;
// beyond GoodLimit the reward is negative FarSlope per degree of error.
type RewardBands struct {
	PerfectBase    float64 `json:"perfectBase"`
	PerfectSlope   float64 `json:"perfectSlope"`
	ExcellentLimit float64 `json:"excellentLimit"` // °C error
	ExcellentBase  float64 `json:"excellentBase"`
	ExcellentSlope float64 `json:"excellentSlope"`
	GoodLimit      float64 `json:"goodLimit"` // °C error
	GoodBase       float64 `json:"goodBase"`
	GoodSlope      float64 `json:"goodSlope"`
	FarSlope       float64 `json:"farSlope"`
}

// RewardConfig holds the full reward model tuning.
type RewardConfig struct {
	Radiator        RewardBands `json:"radiator"`
	Storage         RewardBands `json:"storage"`
	EfficiencyBonus float64     `json:"efficiencyBonus"` // scaled by idle fan headroom
	CoolBonus       float64     `json:"coolBonus"`       // flat, both zones at/below target
}

// QLearningConfig holds the learner parameters.
type QLearningConfig struct {
	Alpha        float64 `json:"alpha"`
	Gamma        float64 `json:"gamma"`
	EpsilonStart float64 `json:"epsilonStart"`
	EpsilonMin   float64 `json:"epsilonMin"`
	EpsilonDecay float64 `json:"epsilonDecay"`
	NoisePenalty float64 `json:"noisePenalty"`
	// UpdateMode selects the Bellman next-state source: "trailing"
	// completes each transition with the state observed on the following
	// cycle, "immediate" uses the current state as its own successor.
	UpdateMode string `json:"updateMode"`
}

// BucketingConfig controls state discretization.
type BucketingConfig struct {
	Step          float64 `json:"step"` // °C per bucket
	HistoryLength int     `json:"historyLength"`
}

// EmergencyConfig holds the instantaneous critical thresholds.
type EmergencyConfig struct {
	RadiatorCritical float64 `json:"radiatorCritical"` // °C
	StorageCritical  float64 `json:"storageCritical"`  // °C
}

// LoopConfig controls control-cycle cadence and persistence.
type LoopConfig struct {
	IntervalSeconds    int `json:"intervalSeconds"`
	BackoffSeconds     int `json:"backoffSeconds"` // sleep after a failed sample
	SaveIntervalCycles int `json:"saveIntervalCycles"`
	CallTimeoutSeconds int `json:"callTimeoutSeconds"` // per sampler/actuator call
}

// CoolerConfig selects the HID cooling device and its channel layout.
type CoolerConfig struct {
	Product          string `json:"product"` // substring match on the HID product string
	RadiatorChannels []int  `json:"radiatorChannels"`
	StorageChannels  []int  `json:"storageChannels"`
}

// PathsConfig holds the durable file locations.
type PathsConfig struct {
	QTable    string `json:"qTable"`
	Telemetry string `json:"telemetry"`
	Log       string `json:"log"`
	Lock      string `json:"lock"`
}

// NotifyConfig controls operator notification delivery.
type NotifyConfig struct {
	MailTo  string `json:"mailTo"`  // empty disables mail(1)
	Desktop bool   `json:"desktop"` // desktop toast via beeep
}

// Config is the full agent configuration.
type Config struct {
	Targets    TargetsConfig    `json:"targets"`
	Hysteresis HysteresisConfig `json:"hysteresis"`
	Fans       FansConfig       `json:"fans"`
	Reward     RewardConfig     `json:"reward"`
	QLearning  QLearningConfig  `json:"q_learning"`
	Bucketing  BucketingConfig  `json:"state_bucketing"`
	Emergency  EmergencyConfig  `json:"emergency"`
	Loop       LoopConfig       `json:"main_loop"`
	Cooler     CoolerConfig     `json:"cooler"`
	Paths      PathsConfig      `json:"paths"`
	Notify     NotifyConfig     `json:"notify"`
}

// MaxTotalSpeed returns the combined upper speed bound of both groups.
func (f FansConfig) MaxTotalSpeed() int {
	return f.Radiator.Max + f.Storage.Max
}

// GetDefaultConfig returns the reference configuration. The reward
// literals match the tuned table the agent ships with.
func GetDefaultConfig() Config {
	return Config{
		Targets:    TargetsConfig{Radiator: 35.0, Storage: 60.0},
		Hysteresis: HysteresisConfig{Radiator: 2.0, Storage: 3.0},
		Fans: FansConfig{
			Radiator: FanRange{Min: 30, Max: 100, Step: 10},
			Storage:  FanRange{Min: 30, Max: 100, Step: 10},
		},
		Reward: RewardConfig{
			Radiator: RewardBands{
				PerfectBase: 30, PerfectSlope: 1,
				ExcellentLimit: 6, ExcellentBase: 20, ExcellentSlope: 0.5,
				GoodLimit: 10, GoodBase: 10, GoodSlope: 1,
				FarSlope: 2,
			},
			Storage: RewardBands{
				PerfectBase: 25, PerfectSlope: 1,
				ExcellentLimit: 10, ExcellentBase: 18, ExcellentSlope: 0.3,
				GoodLimit: 15, GoodBase: 8, GoodSlope: 0.8,
				FarSlope: 1.5,
			},
			EfficiencyBonus: 12,
			CoolBonus:       8,
		},
		QLearning: QLearningConfig{
			Alpha:        0.1,
			Gamma:        0.9,
			EpsilonStart: 0.15,
			EpsilonMin:   0.05,
			EpsilonDecay: 0.995,
			NoisePenalty: 3.0,
			UpdateMode:   "trailing",
		},
		Bucketing: BucketingConfig{Step: 3.0, HistoryLength: 5},
		Emergency: EmergencyConfig{RadiatorCritical: 65.0, StorageCritical: 80.0},
		Loop: LoopConfig{
			IntervalSeconds:    10,
			BackoffSeconds:     5,
			SaveIntervalCycles: 30,
			CallTimeoutSeconds: 8,
		},
		Cooler: CoolerConfig{
			Product:          "Commander Core XT",
			RadiatorChannels: []int{1, 2, 3},
			StorageChannels:  []int{4, 5, 6},
		},
		Paths: PathsConfig{
			QTable:    "/var/lib/qfan/q_table.json",
			Telemetry: "/var/lib/qfan/telemetry.csv",
			Log:       "/var/log/qfan/agent.log",
			Lock:      "/run/qfan.lock",
		},
		Notify: NotifyConfig{MailTo: "root", Desktop: false},
	}
}
