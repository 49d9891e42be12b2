package components

import (
	"log/slog"

	"github.com/crowdfund-revenue-ledger/internal/closure_processor/service"
	"github.com/crowdfund-revenue-ledger/internal/domain/closure"
	"github.com/crowdfund-revenue-ledger/internal/domain/payout"
	"github.com/crowdfund-revenue-ledger/internal/domain/shared"
)

type PayoutCalculatorImpl struct {
	settings closure.Settings
	logger   *slog.Logger
}

func NewPayoutCalculator(settings closure.Settings, logger *slog.Logger) service.PayoutCalculator {
	return &PayoutCalculatorImpl{
		settings: settings,
		logger:   logger,
	}
}

// Calculate runs the engine and checks that the payable lines cover the pot.
func (c *PayoutCalculatorImpl) Calculate(request *shared.ClosureRequest) (*payout.Calculation, error) {
	calc, err := closure.Calculate(request, c.settings)
	if err != nil {
		return nil, err
	}

	if err := payout.CheckConservation(calc.Payouts, request.PotCents); err != nil {
		c.logger.Error("Calculation does not conserve the pot",
			"closure_id", request.ClosureID.String(),
			"rule_version", calc.RuleVersion,
			"error", err,
		)
		return nil, err
	}

	c.logger.Debug("Payout calculated",
		"closure_id", request.ClosureID.String(),
		"rule_version", calc.RuleVersion,
		"mode", calc.Mode,
		"k", calc.K,
		"lines", len(calc.Payouts),
		"residual_cents", calc.ResidualCents,
	)
	return calc, nil
}
