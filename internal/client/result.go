package client

// Result is the uniform outcome of a command: routine failures are data
// rather than faults.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ResultOf wraps the return values of a command.
func ResultOf(data any, err error) Result {
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Data: data}
}
