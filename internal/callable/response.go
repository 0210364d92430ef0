package callable

// Response is the uniform envelope returned by every operation except getUserInfo.
type Response[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func OK[T any](message string, data T) Response[T] {
	return Response[T]{Success: true, Message: message, Data: data}
}

// ErrorResponse is the body written for a failed call.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}
