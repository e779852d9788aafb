package core

// Command is the parsed form of a chat message. The concrete types below are
// the only implementations.
type Command interface {
	command()
}

type (
	RecordIncome struct {
		Amount int64
	}

	RecordExpense struct {
		Amount int64
	}

	Report struct{}

	ScheduleReminder struct {
		FireAt  TimeOfDay
		RawTime string // as typed, echoed back in the confirmation
		Message string
	}

	Unrecognized struct {
		RawText string
	}

	// Rejected is a recognised command whose arguments failed validation.
	Rejected struct {
		RawText string
		Arg     string // offending token, empty when it was missing
		Reason  error  // ErrInvalidAmount or ErrInvalidTime
	}
)

func (RecordIncome) command()     {}
func (RecordExpense) command()    {}
func (Report) command()           {}
func (ScheduleReminder) command() {}
func (Unrecognized) command()     {}
func (Rejected) command()         {}

// CommandName is the metric and log label for a command kind.
func CommandName(cmd Command) string {
	switch cmd.(type) {
	case RecordIncome:
		return "income"
	case RecordExpense:
		return "expense"
	case Report:
		return "report"
	case ScheduleReminder:
		return "reminder"
	case Rejected:
		return "rejected"
	case Unrecognized:
		return "unrecognized"
	}
	return "unknown"
}
