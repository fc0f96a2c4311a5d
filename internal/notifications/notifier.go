package notifications

import "context"

type WelcomeInput struct {
	Email string
	Name  string
}

type Notifier interface {
	SendWelcome(ctx context.Context, input WelcomeInput) error
}
