// Package notify is the notification surface of the client: a narrow sink
// for operation outcomes. Sinks hold no decision logic and must not block.
package notify

// Kind is the result of an operation
type Kind int

const (
	KindSuccess Kind = iota
	KindFailure
)

func (k Kind) String() string {
	if k == KindFailure {
		return "failure"
	}
	return "success"
}

// Subject is the operation an outcome reports on
type Subject string

const (
	SubjectCreate   Subject = "create"
	SubjectUpdate   Subject = "update"
	SubjectDelete   Subject = "delete"
	SubjectFetch    Subject = "fetch"
	SubjectIdentity Subject = "identity"
	SubjectLogin    Subject = "login"
	SubjectRegister Subject = "register"
	SubjectLogout   Subject = "logout"
)

// Outcome is a transient report of one finished operation
type Outcome struct {
	Err            error   // Err исходная ошибка (nil для успеха)
	Subject        Subject // Subject операция
	Title          string  // Title короткий заголовок ("Note Created")
	Message        string  // Message текст для пользователя
	Kind           Kind    // Kind успех или ошибка
	SessionExpired bool    // SessionExpired сервер отклонил токен, нужен повторный вход
}

// Failed reports whether the outcome is a failure
func (o Outcome) Failed() bool {
	return o.Kind == KindFailure
}

// Success builds a success outcome
func Success(subject Subject, title, message string) Outcome {
	return Outcome{Kind: KindSuccess, Subject: subject, Title: title, Message: message}
}

// Failure builds a failure outcome
func Failure(subject Subject, title, message string, err error) Outcome {
	return Outcome{Kind: KindFailure, Subject: subject, Title: title, Message: message, Err: err}
}
