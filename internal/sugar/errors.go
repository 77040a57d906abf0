package sugar

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ResponseError is a non-success HTTP response from the instance.
type ResponseError struct {
	Status  int
	Message string
}

func (e *ResponseError) Error() string {
	return "sugar response error: " + e.Message
}

// AuthenticationError reports rejected credentials or an unusable token response.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// RemoteOperationError reports a failed package-management call.
type RemoteOperationError struct {
	Op  string
	Err error
}

func (e *RemoteOperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteOperationError) Unwrap() error { return e.Err }

// UploadError reports a failed or unreadable package upload.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload package: %v", e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// checkResponse maps any status >= 300 to a ResponseError. The message
// prefers error_description, then error_message, then the status phrase.
func checkResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode < 300 {
		return nil
	}
	return &ResponseError{Status: resp.StatusCode, Message: responseMessage(resp, body)}
}

func responseMessage(resp *http.Response, body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.ErrorDescription != "" {
			return eb.ErrorDescription
		}
		if eb.ErrorMessage != "" {
			return eb.ErrorMessage
		}
	}
	if phrase := statusPhrase(resp); phrase != "" {
		return phrase
	}
	return fmt.Sprintf("HTTP %d", resp.StatusCode)
}

// statusPhrase returns the reason phrase from resp.Status ("401 Unauthorized"
// gives "Unauthorized"), falling back to the standard text for the code.
func statusPhrase(resp *http.Response) string {
	if _, phrase, ok := strings.Cut(resp.Status, " "); ok && phrase != "" {
		return phrase
	}
	return http.StatusText(resp.StatusCode)
}
