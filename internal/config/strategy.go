package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
	"github.com/jengzang/itinerary-backend-go/internal/models"
)

// Strategy 重规划策略常量，全部可由 YAML 文件覆盖
type Strategy struct {
	Day           DayStrategy           `yaml:"day"`
	Thresholds    ThresholdStrategy     `yaml:"thresholds"`
	Delay         DelayStrategy         `yaml:"delay"`
	Crowd         CrowdStrategy         `yaml:"crowd"`
	Traffic       TrafficStrategy       `yaml:"traffic"`
	Weather       WeatherStrategy       `yaml:"weather"`
	HungerFatigue HungerFatigueStrategy `yaml:"hunger_fatigue"`
	Edits         EditStrategy          `yaml:"edits"`
	Alternatives  int                   `yaml:"alternatives" validate:"gte=1"`
}

// DayStrategy 每日时间窗口
type DayStrategy struct {
	Start models.Clock `yaml:"start"`
	End   models.Clock `yaml:"end" validate:"gtfield=Start"`
}

// ThresholdStrategy 条件监控阈值
type ThresholdStrategy struct {
	Min              float64 `yaml:"min" validate:"gte=0,lte=1"`
	Max              float64 `yaml:"max" validate:"gte=0,lte=1,gtfield=Min"`
	CrowdAverse      float64 `yaml:"crowd_averse" validate:"gte=0,lte=1"`
	CrowdTolerant    float64 `yaml:"crowd_tolerant" validate:"gte=0,lte=1"`
	TrafficRelaxed   float64 `yaml:"traffic_relaxed" validate:"gte=0,lte=1"`
	TrafficModerate  float64 `yaml:"traffic_moderate" validate:"gte=0,lte=1"`
	TrafficPacked    float64 `yaml:"traffic_packed" validate:"gte=0,lte=1"`
	HeavyTravelScale float64 `yaml:"heavy_travel_scale" validate:"gt=0,lte=1"`
	WeatherOutdoor   float64 `yaml:"weather_outdoor" validate:"gte=0,lte=1"`
	WeatherIndoor    float64 `yaml:"weather_indoor" validate:"gte=0,lte=1"`
	MorningScale     float64 `yaml:"morning_scale" validate:"gt=0,lte=1"`
	Fallback         float64 `yaml:"fallback" validate:"gte=0,lte=1"` // events without a threshold
}

// DelayStrategy 延误重规划规则
type DelayStrategy struct {
	ReplanMinutes      int `yaml:"replan_minutes" validate:"gte=0"`
	ReplanRemaining    int `yaml:"replan_remaining" validate:"gte=0"`
	HighUrgencyRemains int `yaml:"high_urgency_remaining" validate:"gte=0"`
}

// CrowdStrategy 拥挤改期规则
type CrowdStrategy struct {
	BufferMinutes   int `yaml:"buffer_minutes" validate:"gte=0"`
	DefaultMinVisit int `yaml:"default_min_visit" validate:"gte=0"`
}

// TrafficStrategy 交通延误规则
type TrafficStrategy struct {
	ReplanDelayMinutes   int     `yaml:"replan_delay_minutes" validate:"gte=0"`
	HighUrgencyDelay     int     `yaml:"high_urgency_delay" validate:"gtefield=ReplanDelayMinutes"`
	HighPriority         float64 `yaml:"high_priority" validate:"gte=0,lte=1"`
	ClusterRadiusMinutes float64 `yaml:"cluster_radius_minutes" validate:"gt=0"`
	SpeedKmh             float64 `yaml:"speed_kmh" validate:"gt=0"`
	WalkingSpeedKmh      float64 `yaml:"walking_speed_kmh" validate:"gt=0"`
	WalkingFactor        float64 `yaml:"walking_factor" validate:"gt=1"`
}

// WeatherStrategy 天气分类规则
type WeatherStrategy struct {
	UnsafeSeverity      float64  `yaml:"unsafe_severity" validate:"gte=0,lte=1"`
	HighUrgencySeverity float64  `yaml:"high_urgency_severity" validate:"gte=0,lte=1"`
	DurationScale       float64  `yaml:"duration_scale" validate:"gt=0,lte=1"`
	SpeedKmh            float64  `yaml:"speed_kmh" validate:"gt=0"`
	SensitiveCategories []string `yaml:"sensitive_categories"`
}

// HungerFatigueStrategy 饥饿与疲劳模型参数
type HungerFatigueStrategy struct {
	HungerFullMinutes  float64            `yaml:"hunger_full_minutes" validate:"gt=0"`
	FatigueFullMinutes float64            `yaml:"fatigue_full_minutes" validate:"gt=0"`
	IntensityEffort    map[string]float64 `yaml:"intensity_effort" validate:"required,dive,gt=0"`
	HungerFloor        float64            `yaml:"hunger_floor" validate:"gte=0,lte=1"`
	FatigueFloor       float64            `yaml:"fatigue_floor" validate:"gte=0,lte=1"`
	HungerTrigger      float64            `yaml:"hunger_trigger" validate:"gte=0,lte=1"`
	FatigueTrigger     float64            `yaml:"fatigue_trigger" validate:"gte=0,lte=1"`
	CooldownMinutes    float64            `yaml:"cooldown_minutes" validate:"gte=0"`
	MealMinutes        int                `yaml:"meal_minutes" validate:"gt=0"`
	RestMinutes        int                `yaml:"rest_minutes" validate:"gt=0"`
	RestRelief         float64            `yaml:"rest_relief" validate:"gt=0,lte=1"`
	RestaurantBonus    float64            `yaml:"restaurant_bonus" validate:"gte=0,lte=1"`
	SkipIntenseNudge   float64            `yaml:"skip_intense_nudge" validate:"gte=0,lte=1"`
	PaceChangeNudge    float64            `yaml:"pace_change_nudge" validate:"gte=0,lte=1"`
	LongStopMinutes    int                `yaml:"long_stop_minutes" validate:"gt=0"`
	HungerPenaltyLong  float64            `yaml:"hunger_penalty_long" validate:"gte=0,lte=1"`
	HungerPenaltyShort float64            `yaml:"hunger_penalty_short" validate:"gte=0,lte=1"`
	FatiguePenalty     map[string]float64 `yaml:"fatigue_penalty" validate:"dive,gte=0,lte=1"`
	WalkingSpeedKmh    float64            `yaml:"walking_speed_kmh" validate:"gt=0"`
}

// EditStrategy 用户编辑规则
type EditStrategy struct {
	HighValue       float64 `yaml:"high_value" validate:"gte=0,lte=1"`
	TopN            int     `yaml:"top_n" validate:"gte=1"`
	WalkingSpeedKmh float64 `yaml:"walking_speed_kmh" validate:"gt=0"`
}

// DefaultStrategy 返回默认策略
func DefaultStrategy() Strategy {
	return Strategy{
		Day: DayStrategy{
			Start: models.ClockAt(9, 0),
			End:   models.ClockAt(20, 0),
		},
		Thresholds: ThresholdStrategy{
			Min:              0.15,
			Max:              0.90,
			CrowdAverse:      0.35,
			CrowdTolerant:    0.70,
			TrafficRelaxed:   0.30,
			TrafficModerate:  0.55,
			TrafficPacked:    0.80,
			HeavyTravelScale: 0.80,
			WeatherOutdoor:   0.40,
			WeatherIndoor:    0.65,
			MorningScale:     0.85,
			Fallback:         0.5,
		},
		Delay: DelayStrategy{
			ReplanMinutes:      20,
			ReplanRemaining:    120,
			HighUrgencyRemains: 90,
		},
		Crowd: CrowdStrategy{
			BufferMinutes:   60,
			DefaultMinVisit: 60,
		},
		Traffic: TrafficStrategy{
			ReplanDelayMinutes:   20,
			HighUrgencyDelay:     40,
			HighPriority:         0.65,
			ClusterRadiusMinutes: 30,
			SpeedKmh:             20,
			WalkingSpeedKmh:      4,
			WalkingFactor:        2,
		},
		Weather: WeatherStrategy{
			UnsafeSeverity:      0.75,
			HighUrgencySeverity: 0.80,
			DurationScale:       0.75,
			SpeedKmh:            4,
			SensitiveCategories: []string{
				"beach", "park", "viewpoint", "rooftop", "market",
				"open_air_museum", "garden", "zoo", "amusement_park",
			},
		},
		HungerFatigue: HungerFatigueStrategy{
			HungerFullMinutes:  180,
			FatigueFullMinutes: 420,
			IntensityEffort: map[string]float64{
				models.IntensityLow:    1.0,
				models.IntensityMedium: 1.3,
				models.IntensityHigh:   1.8,
			},
			HungerFloor:        0.72,
			FatigueFloor:       0.78,
			HungerTrigger:      0.70,
			FatigueTrigger:     0.75,
			CooldownMinutes:    40,
			MealMinutes:        45,
			RestMinutes:        20,
			RestRelief:         0.40,
			RestaurantBonus:    0.30,
			SkipIntenseNudge:   0.10,
			PaceChangeNudge:    0.08,
			LongStopMinutes:    90,
			HungerPenaltyLong:  0.40,
			HungerPenaltyShort: 0.10,
			FatiguePenalty: map[string]float64{
				models.IntensityLow:    0,
				models.IntensityMedium: 0.20,
				models.IntensityHigh:   0.50,
			},
			WalkingSpeedKmh: 5,
		},
		Edits: EditStrategy{
			HighValue:       0.70,
			TopN:            5,
			WalkingSpeedKmh: 5,
		},
		Alternatives: 3,
	}
}

var validate = validator.New()

// Validate 校验策略字段
func (s Strategy) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errs.Validation("strategy", "%v", err)
	}
	return nil
}

// LoadStrategy 读取 YAML 策略文件并覆盖默认值；path 为空时返回默认策略
func LoadStrategy(path string) (Strategy, error) {
	s := DefaultStrategy()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read strategy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse strategy file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}
