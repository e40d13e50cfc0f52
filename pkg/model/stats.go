package model

type StatsFilter struct {
	UserID string `json:"user_id,omitempty"`
	From   Date   `json:"from"`
	To     Date   `json:"to"`
}

type DateCount struct {
	Date  Date `json:"date"`
	Count int  `json:"count"`
}

type UserCount struct {
	UserID string `json:"user_id"`
	Count  int    `json:"count"`
}

type SpaceCount struct {
	SpaceID string `json:"space_id"`
	Count   int    `json:"count"`
}

type StatusBreakdown struct {
	Approved int `json:"approved"`
	Pending  int `json:"pending"`
	Rejected int `json:"rejected"`
}

func (b *StatusBreakdown) Add(s Status) {
	switch s {
	case StatusApproved:
		b.Approved++
	case StatusPending:
		b.Pending++
	case StatusRejected:
		b.Rejected++
	}
}

func (b StatusBreakdown) Total() int {
	return b.Approved + b.Pending + b.Rejected
}

type UserBreakdown struct {
	UserID string `json:"user_id"`
	StatusBreakdown
	Total int `json:"total"`
}

type SpaceBreakdown struct {
	SpaceID string `json:"space_id"`
	StatusBreakdown
	Total int `json:"total"`
}
