package tools

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/budgets"
	budgetstypes "github.com/aws/aws-sdk-go-v2/service/budgets/types"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/erauner12/cloudbridge/internal/document"
)

// DateLayout is the Cost Explorer date format
const DateLayout = "2006-01-02"

// costMetric is the only metric requested from Cost Explorer
const costMetric = "UnblendedCost"

// CostWindow returns the first day of the month five months before now and
// the last day of now's month. Both ends are inclusive.
func CostWindow(now time.Time) (start, end time.Time) {
	now = now.UTC()
	year, month, _ := now.Date()
	start = time.Date(year, month-5, 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	return start, end
}

func invokeCostAndUsage(ctx context.Context, tc *ToolContext, _ Arguments) (*costexplorer.GetCostAndUsageOutput, error) {
	start, end := CostWindow(tc.now())
	tc.Logger.Debug().
		Str("start", start.Format(DateLayout)).
		Str("end", end.Format(DateLayout)).
		Msg("querying cost and usage")

	return tc.Cloud.Cost.GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(start.Format(DateLayout)),
			End:   aws.String(end.Format(DateLayout)),
		},
		Granularity: cetypes.GranularityMonthly,
		Metrics:     []string{costMetric},
	})
}

func projectCost(out *costexplorer.GetCostAndUsageOutput) (map[string]any, error) {
	if out == nil {
		return nil, errNoResponse
	}
	return map[string]any{"cost": document.Convert(out)}, nil
}

// invokeDescribeBudgets lists budgets for account_id, or for the calling
// account when none is given
func invokeDescribeBudgets(ctx context.Context, tc *ToolContext, args Arguments) ([]budgetstypes.Budget, error) {
	accountID := args.String("account_id")
	if accountID == "" {
		identity, err := tc.Cloud.Identity.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err != nil {
			return nil, err
		}
		if identity == nil || aws.ToString(identity.Account) == "" {
			return nil, errors.New("caller identity has no account")
		}
		accountID = aws.ToString(identity.Account)
	}

	out, err := tc.Cloud.Budgets.DescribeBudgets(ctx, &budgets.DescribeBudgetsInput{
		AccountId: aws.String(accountID),
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errNoResponse
	}
	return out.Budgets, nil
}

func projectBudgets(list []budgetstypes.Budget) (map[string]any, error) {
	converted, ok := document.Convert(list).([]any)
	if !ok {
		converted = []any{}
	}
	return map[string]any{"budgets": converted}, nil
}
