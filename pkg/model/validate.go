package model

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the semantic invariants of a decoded Script.
func (s *Script) Validate() error {
	if err := validatorInstance().Struct(s); err != nil {
		return describe(err)
	}
	sum := s.SceneDurationSum()
	if s.TotalDuration > 0 && math.Abs(sum-s.TotalDuration) > 0.1*s.TotalDuration {
		slog.Warn("Script total_duration does not match scene sum",
			"topic", s.Topic, "total_duration", s.TotalDuration, "scene_sum", sum)
	}
	return nil
}

// Validate checks the semantic invariants of a decoded VideoBlueprint.
// Element timings outside the scene duration are reported at debug level only;
// the scheduler clamps them.
func (b *VideoBlueprint) Validate() error {
	if err := validatorInstance().Struct(b); err != nil {
		return describe(err)
	}
	for _, sc := range b.SceneBlueprints {
		for i, el := range sc.Elements {
			if el.Timing < 0 || el.Timing > sc.Duration {
				slog.Debug("Element timing outside scene duration",
					"scene", sc.SceneNumber, "element", sc.ElementID(i), "timing", el.Timing, "duration", sc.Duration)
			}
		}
	}
	return nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(parts, "; "))
}
