// Package abtest implements the A/B test lifecycle, variant alteration
// patches and visitor bucketing.
package abtest

import (
	"context"
	"fmt"
	"math"

	"github.com/formloom/formloom/internal/store"
)

// CanTransition reports whether a test may move between two statuses:
// draft -> running, running <-> paused, running|paused -> concluded.
// Concluded is terminal.
func CanTransition(from, to store.TestStatus) bool {
	switch from {
	case store.TestDraft:
		return to == store.TestRunning
	case store.TestRunning:
		return to == store.TestPaused || to == store.TestConcluded
	case store.TestPaused:
		return to == store.TestRunning || to == store.TestConcluded
	}
	return false
}

// Service enforces the test lifecycle on top of the store. The store
// already guards variant mutations against running tests; the service
// guards the transitions themselves.
type Service struct {
	Store store.Store
}

// Start moves a draft test to running after validating its variants:
// at least two, exactly one control, traffic summing to 100.
func (s *Service) Start(ctx context.Context, testID string) error {
	test, err := s.Store.GetTest(ctx, testID)
	if err != nil {
		return err
	}
	if !CanTransition(test.Status, store.TestRunning) {
		return fmt.Errorf("%w: %s -> running", store.ErrInvalidTransition, test.Status)
	}

	variants, err := s.Store.ListVariants(ctx, testID)
	if err != nil {
		return err
	}
	if err := ValidateVariants(variants); err != nil {
		return err
	}

	return s.Store.UpdateTestStatus(ctx, testID, store.TestRunning, nil)
}

// Pause suspends a running test.
func (s *Service) Pause(ctx context.Context, testID string) error {
	return s.transition(ctx, testID, store.TestPaused)
}

// Resume restarts a paused test.
func (s *Service) Resume(ctx context.Context, testID string) error {
	return s.transition(ctx, testID, store.TestRunning)
}

func (s *Service) transition(ctx context.Context, testID string, to store.TestStatus) error {
	test, err := s.Store.GetTest(ctx, testID)
	if err != nil {
		return err
	}
	if !CanTransition(test.Status, to) {
		return fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, test.Status, to)
	}
	return s.Store.UpdateTestStatus(ctx, testID, to, nil)
}

// Conclude terminally ends a test, optionally recording the winning
// variant. The winner is settable only here: a test that is already
// concluded cannot change it.
func (s *Service) Conclude(ctx context.Context, testID string, winnerID string) error {
	test, err := s.Store.GetTest(ctx, testID)
	if err != nil {
		return err
	}
	if !CanTransition(test.Status, store.TestConcluded) {
		return fmt.Errorf("%w: %s -> concluded", store.ErrInvalidTransition, test.Status)
	}

	if winnerID == "" {
		return s.Store.UpdateTestStatus(ctx, testID, store.TestConcluded, nil)
	}

	variants, err := s.Store.ListVariants(ctx, testID)
	if err != nil {
		return err
	}
	found := false
	for _, v := range variants {
		if v.ID == winnerID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("winner %s is not a variant of test %s: %w", winnerID, testID, store.ErrNotFound)
	}

	return s.Store.UpdateTestStatus(ctx, testID, store.TestConcluded, &winnerID)
}

// ValidateVariants checks the invariants a test needs before it can run.
func ValidateVariants(variants []store.Variant) error {
	if len(variants) < 2 {
		return fmt.Errorf("test needs at least 2 variants, has %d", len(variants))
	}

	controls := 0
	letters := map[string]bool{}
	total := 0.0
	for _, v := range variants {
		if v.Control {
			controls++
		}
		if letters[v.Letter] {
			return fmt.Errorf("duplicate variant letter %q", v.Letter)
		}
		letters[v.Letter] = true
		total += v.TrafficPct
	}

	if controls != 1 {
		return fmt.Errorf("test needs exactly 1 control variant, has %d", controls)
	}
	if math.Abs(total-100) > 0.01 {
		return fmt.Errorf("variant traffic must sum to 100%%, got %.2f%%", total)
	}
	return nil
}
