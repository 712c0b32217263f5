package app

import "github.com/dkeye/Chat/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickMember
	DropFrame
)

// Policy decides what happens to a connection whose outbound queue is full.
type Policy interface {
	OnBackPressure(cid core.ConnID) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.ConnID) BackpressureAction {
	return KickMember
}

// DropPolicy only loses the frame; the slow connection stays.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(core.ConnID) BackpressureAction {
	return DropFrame
}
