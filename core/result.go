package core

// Result is the outcome of a mutation as reported to callers.
// Success and Error are never both true.
type Result struct {
	Success bool `json:"success"`
	Error   bool `json:"error"`
}

var (
	Succeeded = Result{Success: true}
	Failed    = Result{Error: true}
)

// ResultOf maps err to a Result.
func ResultOf(err error) Result {
	if err != nil {
		return Failed
	}
	return Succeeded
}
