package progress

import "time"

// Timer 可取消的定时回调
type Timer interface {
	Stop() bool
}

// Clock 定时器来源，测试中可替换为手动推进的时钟
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock 基于 time.AfterFunc 的时钟
var RealClock Clock = realClock{}
