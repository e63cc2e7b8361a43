/* Copyright 2024 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package device

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Presenter makes a State visible somehow.
type Presenter interface {
	Present(ctx context.Context, s State)
}

// PresenterFunc adapts a function.
type PresenterFunc func(ctx context.Context, s State)

func (f PresenterFunc) Present(ctx context.Context, s State) {
	f(ctx, s)
}

// Presenters presents to each of its members in order.
type Presenters []Presenter

func (ps Presenters) Present(ctx context.Context, s State) {
	for _, p := range ps {
		p.Present(ctx, s)
	}
}

// Art is the picture for each State.
var Art = map[State]string{
	On: `
        _____
      .'     '.
     /  \ | /  \
    |  -- O --  |
     \  / | \  /
      '.     .'
       |=====|
       |=====|
        '---'
     lightswitch: ON
`,
	Off: `
        _____
      .'     '.
     /         \
    |           |
     \         /
      '.     .'
       |=====|
       |=====|
        '---'
     lightswitch: OFF
`,
}

// ArtPresenter writes the picture for a State to W.
type ArtPresenter struct {
	W io.Writer

	sync.Mutex
}

func (p *ArtPresenter) Present(ctx context.Context, s State) {
	art, have := Art[s]
	if !have {
		art = fmt.Sprintf("lightswitch: %s?\n", s)
	}
	p.Lock()
	fmt.Fprint(p.W, art)
	p.Unlock()
}

// LastPresented remembers the most recently presented State.
type LastPresented struct {
	sync.Mutex
	State State
	Count int
}

func (p *LastPresented) Present(ctx context.Context, s State) {
	p.Lock()
	p.State = s
	p.Count++
	p.Unlock()
}

// Last returns the last State presented and how many times Present
// was called.
func (p *LastPresented) Last() (State, int) {
	p.Lock()
	defer p.Unlock()
	return p.State, p.Count
}
