package pricing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"

	"github.com/iliyamo/hotel-booking/internal/domain"
)

type pricingScenario struct {
	room  domain.Room
	today domain.Date
	quote Quote
	err   error
}

func (s *pricingScenario) reset() {
	*s = pricingScenario{}
}

func (s *pricingScenario) aRoomWithBaseMinAndMax(base, min, max string) error {
	s.room = domain.Room{
		BasePrice: domain.MustMoney(base),
		MinPrice:  money(min),
		MaxPrice:  money(max),
	}
	return nil
}

func (s *pricingScenario) todayIs(day string) error {
	d, err := domain.ParseDate(day)
	s.today = d
	return err
}

func (s *pricingScenario) iQuoteAStay(in, out string) error {
	s.quote, s.err = QuoteStay(s.room, domain.MustDate(in), domain.MustDate(out), s.today)
	return nil
}

func (s *pricingScenario) theNightlyRateIs(want string) error {
	if s.err != nil {
		return s.err
	}
	if got := s.quote.NightlyRate.String(); got != want {
		return fmt.Errorf("expected nightly rate %s, got %s", want, got)
	}
	return nil
}

func (s *pricingScenario) theTotalIs(want string) error {
	if got := s.quote.Total.String(); got != want {
		return fmt.Errorf("expected total %s, got %s", want, got)
	}
	return nil
}

func (s *pricingScenario) theTierIs(want string) error {
	if string(s.quote.Tier) != want {
		return fmt.Errorf("expected tier %s, got %s", want, s.quote.Tier)
	}
	return nil
}

func (s *pricingScenario) theQuoteFailsWithAValidationError() error {
	if s.err == nil {
		return errors.New("expected an error, got a quote")
	}
	if !domain.IsValidation(s.err) {
		return fmt.Errorf("expected a validation error, got %v", s.err)
	}
	return nil
}

func initializePricingScenario(ctx *godog.ScenarioContext) {
	s := &pricingScenario{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		s.reset()
		return ctx, nil
	})

	ctx.Step(`^a room with base (\d+), min (\d+) and max (\d+)$`, s.aRoomWithBaseMinAndMax)
	ctx.Step(`^today is "([^"]*)"$`, s.todayIs)
	ctx.Step(`^I quote a stay from "([^"]*)" to "([^"]*)"$`, s.iQuoteAStay)
	ctx.Step(`^the nightly rate is "([^"]*)"$`, s.theNightlyRateIs)
	ctx.Step(`^the total is "([^"]*)"$`, s.theTotalIs)
	ctx.Step(`^the tier is "([^"]*)"$`, s.theTierIs)
	ctx.Step(`^the quote fails with a validation error$`, s.theQuoteFailsWithAValidationError)
}

func TestPricingFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializePricingScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/pricing.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
