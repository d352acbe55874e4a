package fluid

//Frame - an animation frame: index and the interval one frame spans
type Frame struct {
	Index                 int
	TimeIntervalInSeconds float64
}

//NewFrame - frame index at fps frames per second
func NewFrame(index int, fps float64) Frame {
	return Frame{Index: index, TimeIntervalInSeconds: 1 / fps}
}

//TimeInSeconds is the start time of the frame
func (f Frame) TimeInSeconds() float64 {
	return float64(f.Index) * f.TimeIntervalInSeconds
}

func (f *Frame) Advance() {
	f.Index++
}

func (f *Frame) AdvanceBy(delta int) {
	f.Index += delta
}
