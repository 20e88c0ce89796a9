package cart_test

import (
	"context"
	"fmt"
	"testing"

	"storefront/cart"
	"storefront/models"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
)

type cartTestContext struct {
	store *cart.Store
}

func (c *cartTestContext) reset() {
	c.store = cart.New(cart.WithKeyFunc(cart.ByName))
}

func (c *cartTestContext) anEmptyCart() error {
	c.reset()
	return nil
}

func (c *cartTestContext) iAddProductPriced(name string, price int) error {
	_, err := c.store.Add(models.Product{ID: "sku-" + name, Name: name, Price: decimal.NewFromInt(int64(price))})
	return err
}

func (c *cartTestContext) iIncrement(identity string) error {
	c.store.Increment(identity)
	return nil
}

func (c *cartTestContext) iDecrement(identity string) error {
	c.store.Decrement(identity)
	return nil
}

func (c *cartTestContext) iClearTheCart() error {
	c.store.Clear()
	return nil
}

func (c *cartTestContext) theCartHasLines(n int) error {
	if got := c.store.Len(); got != n {
		return fmt.Errorf("expected %d lines, got %d", n, got)
	}
	return nil
}

func (c *cartTestContext) lineHasQuantity(identity string, qty int) error {
	line, ok := c.store.Line(identity)
	if !ok {
		return fmt.Errorf("line %q not found", identity)
	}
	if line.Quantity != qty {
		return fmt.Errorf("expected line %q quantity %d, got %d", identity, qty, line.Quantity)
	}
	return nil
}

func (c *cartTestContext) lineIsAbsent(identity string) error {
	if _, ok := c.store.Line(identity); ok {
		return fmt.Errorf("expected line %q to be removed", identity)
	}
	return nil
}

func (c *cartTestContext) theCartCountIs(n int) error {
	if got := c.store.Count(); got != n {
		return fmt.Errorf("expected count %d, got %d", n, got)
	}
	return nil
}

func (c *cartTestContext) theCartTotalIs(total string) error {
	want, err := decimal.NewFromString(total)
	if err != nil {
		return err
	}
	if got := c.store.Total(); !got.Equal(want) {
		return fmt.Errorf("expected total %s, got %s", want, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^an empty cart$`, tc.anEmptyCart)

	ctx.Step(`^I add product "([^"]*)" priced (\d+)$`, tc.iAddProductPriced)
	ctx.Step(`^I increment "([^"]*)"$`, tc.iIncrement)
	ctx.Step(`^I decrement "([^"]*)"$`, tc.iDecrement)
	ctx.Step(`^I clear the cart$`, tc.iClearTheCart)

	ctx.Step(`^the cart has (\d+) lines?$`, tc.theCartHasLines)
	ctx.Step(`^line "([^"]*)" has quantity (\d+)$`, tc.lineHasQuantity)
	ctx.Step(`^line "([^"]*)" is absent$`, tc.lineIsAbsent)
	ctx.Step(`^the cart count is (\d+)$`, tc.theCartCountIs)
	ctx.Step(`^the cart total is "([^"]*)"$`, tc.theCartTotalIs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/cart.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
