package apperrors

// appError implements the apperrors.Error interface.
//
// Derivation methods (New, Msg, Err, ...) return a child error instead of
// mutating the receiver, so package-level sentinel errors stay immutable and
// can be compared with errors.Is from any goroutine.
type appError struct {
	msg           string
	base          Error
	wrappedErrors []error
	statuscode    int
	expandError   bool
	prefix        string
	suffix        string
}

func (e *appError) child() *appError {
	return &appError{
		msg:           e.msg,
		base:          e,
		statuscode:    e.statuscode,
		expandError:   e.expandError,
		prefix:        e.prefix,
		suffix:        e.suffix,
		wrappedErrors: append([]error(nil), e.wrappedErrors...),
	}
}

func (e *appError) Error() string {
	msg := e.msg
	if e.prefix != "" {
		msg = e.prefix + ": " + msg
	}
	if e.suffix != "" {
		msg += ": " + e.suffix
	}
	return msg
}

func (e *appError) ErrorAll() string {
	if !e.expandError {
		return e.Error()
	}
	var msg string
	for _, err := range e.wrappedErrors {
		msg += err.Error() + ";"
	}
	if len(msg) > 0 {
		// remove the last ;
		msg = msg[:len(msg)-1]
		msg = e.Error() + ": " + msg
	} else {
		msg = e.Error()
	}
	return msg
}

func (e *appError) Unwrap() []error {
	return e.wrappedErrors
}

func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		statuscode: e.statuscode,
		base:       e,
	}
}

func (e *appError) Msg(msg string) Error {
	c := e.child()
	c.msg = msg
	return c
}

func (e *appError) Prefix(prefix string) Error {
	c := e.child()
	c.prefix = prefix
	return c
}

func (e *appError) Suffix(suffix string) Error {
	c := e.child()
	c.suffix = suffix
	return c
}

func (e *appError) MsgErr(msg string, err ...error) Error {
	c := e.child()
	c.msg = msg
	c.wrappedErrors = append(c.wrappedErrors, err...)
	return c
}

func (e *appError) Err(err ...error) Error {
	c := e.child()
	c.wrappedErrors = append(c.wrappedErrors, err...)
	return c
}

func (e *appError) Is(target error) bool {
	if e == target || e.base == target {
		return true
	}
	if e.base != nil && e.base.Is(target) {
		return true
	}
	for _, err := range e.wrappedErrors {
		if err == target {
			return true
		}
	}
	return false
}

func (e *appError) SetExpandError(expand bool) Error {
	c := e.child()
	c.expandError = expand
	return c
}

func (e *appError) SetStatusCode(code int) Error {
	c := e.child()
	c.statuscode = code
	return c
}

func (e *appError) StatusCode() int {
	return e.statuscode
}

func New(msg string) Error {
	return &appError{
		msg: msg,
	}
}
