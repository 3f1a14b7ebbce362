// Copyright © 2017 Microsoft <wastore@microsoft.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package uploadqueue

import (
	"reflect"

	"github.com/JeffreyRichter/enum/enum"
	"github.com/google/uuid"

	"github.com/wastore/chunkup/chunk"
)

type TaskStatus uint8

const (
	TaskPending TaskStatus = iota
	TaskInFlight
	TaskCompleted
	TaskFailed
)

var ETaskStatus = TaskStatus(TaskPending)

func (TaskStatus) Pending() TaskStatus   { return TaskPending }
func (TaskStatus) InFlight() TaskStatus  { return TaskInFlight }
func (TaskStatus) Completed() TaskStatus { return TaskCompleted }
func (TaskStatus) Failed() TaskStatus    { return TaskFailed }

func (s TaskStatus) String() string {
	return enum.StringInt(s, reflect.TypeOf(s))
}

// Task is one chunk's journey through dedup-check-then-upload. Its status
// only ever moves pending -> in-flight -> (completed | failed).
type Task struct {
	TaskID string
	Chunk  *chunk.Chunk
	Status TaskStatus
	Err    error
}

func newTask(c *chunk.Chunk) *Task {
	return &Task{TaskID: uuid.NewString(), Chunk: c, Status: ETaskStatus.Pending()}
}

// Stats is a point-in-time snapshot of the queue's task counts. At every
// observable moment Pending+InFlight+Completed+Failed == TotalChunks.
type Stats struct {
	TotalChunks     int
	Pending         int
	InFlight        int
	Completed       int
	Failed          int
	AllChunksHashed bool
}
