package greeting

import "cqrskit/internal/infra/cqrs"

// SayHello greets Name and records the greeting.
type SayHello struct {
	cqrs.CommandBase
	Name string `json:"name" binding:"required" validate:"required,max=64"`
}

// Farewell says goodbye to someone who was greeted before.
type Farewell struct {
	cqrs.CommandBase
	Name string `json:"name" binding:"required" validate:"required"`
}

// CountGreetings returns how often Name was greeted.
type CountGreetings struct {
	cqrs.QueryBase
	Name string `json:"name" validate:"required"`
}

// SlowQuery sleeps DelayMS before answering.
type SlowQuery struct {
	cqrs.QueryBase
	DelayMS int `json:"delay_ms" validate:"gte=0,lte=60000"`
}

// GreetingRecorded is raised inside SayHello; its handler updates the count.
type GreetingRecorded struct {
	cqrs.DomainEventBase
	Name string
	Note string
}

// Greeted is announced after a greeting; its handler appends to the audit log.
type Greeted struct {
	cqrs.ApplicationEventBase
	Name    string `json:"name"`
	Message string `json:"message"`
}

// GreetingCount is the CountGreetings result.
type GreetingCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Note  string `json:"note,omitempty"`
}

// SayHelloRequest is the body of POST /greetings.
type SayHelloRequest struct {
	Name string `json:"name" binding:"required,max=64"`
}
