package job

// Outcome is the terminal disposition of a single Run invocation, decided
// by the contract wrapper immediately after Run returns.
type Outcome int

const (
	// OutcomeFinished means Run returned with ErrorCode()==0 and no Stop.
	OutcomeFinished Outcome = iota
	// OutcomeCancelled means Stop was observed and no error was reported.
	OutcomeCancelled
	// OutcomeErrored means ReportError was called with a positive code.
	OutcomeErrored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFinished:
		return "finished"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Decide inspects a job immediately after Run returns and reports which
// outcome applies. It does not mutate the job; callers still owe it a
// Cleanup() call afterward, which is where Finished gets promoted.
func Decide(j Job) Outcome {
	switch {
	case j.ErrorCode() != 0:
		return OutcomeErrored
	case j.Cancelled():
		return OutcomeCancelled
	default:
		return OutcomeFinished
	}
}
