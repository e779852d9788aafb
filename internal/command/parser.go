// Package command turns chat message bodies into typed commands.
package command

import (
	"strings"

	"catat/internal/core"
)

// Keywords are Indonesian, matching what users type in the chat.
const (
	IncomePrefix   = "catat pemasukan"
	ExpensePrefix  = "catat pengeluaran"
	ReportKeyword  = "laporan"
	ReminderPrefix = "ingatkan"
)

// Parse classifies a case-folded message body. Checks run in a fixed order
// (income, expense, report, reminder) and the first match wins.
func Parse(text string) core.Command {
	switch {
	case strings.HasPrefix(text, IncomePrefix):
		amount, arg, err := amountArg(text)
		if err != nil {
			return core.Rejected{RawText: text, Arg: arg, Reason: err}
		}
		return core.RecordIncome{Amount: amount}
	case strings.HasPrefix(text, ExpensePrefix):
		amount, arg, err := amountArg(text)
		if err != nil {
			return core.Rejected{RawText: text, Arg: arg, Reason: err}
		}
		return core.RecordExpense{Amount: amount}
	case text == ReportKeyword:
		return core.Report{}
	case strings.HasPrefix(text, ReminderPrefix):
		return parseReminder(text)
	default:
		return core.Unrecognized{RawText: text}
	}
}

// amountArg reads the third whitespace-delimited token.
func amountArg(text string) (int64, string, error) {
	fields := strings.Fields(text)
	if len(fields) < 3 {
		return 0, "", core.ErrInvalidAmount
	}
	amount, err := core.ParseAmount(fields[2])
	return amount, fields[2], err
}

func parseReminder(text string) core.Command {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return core.Rejected{RawText: text, Reason: core.ErrInvalidTime}
	}
	raw := fields[1]
	tod, err := core.ParseTimeOfDay(raw)
	if err != nil {
		return core.Rejected{RawText: text, Arg: raw, Reason: err}
	}
	return core.ScheduleReminder{
		FireAt:  tod,
		RawTime: raw,
		Message: strings.Join(fields[2:], " "),
	}
}
