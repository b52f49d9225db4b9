package page

import "context"

// BeforeUnloadFunc returns a confirmation message and whether it is set.
type BeforeUnloadFunc func() (string, bool)

type windowHandlers struct {
	resize       func()
	beforeUnload BeforeUnloadFunc
	unload       func()
}

// InitHandlers hooks the window's resize, beforeunload and unload events.
// Each new handler runs before the one it replaces. For beforeunload the new
// handler's message wins when set; otherwise the previous handler's message is
// returned. Nil arguments leave the corresponding event untouched.
func (p *Page) InitHandlers(resize func(), beforeUnload BeforeUnloadFunc, unload func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if resize != nil {
		old := p.handlers.resize
		p.handlers.resize = func() {
			resize()
			if old != nil {
				old()
			}
		}
	}

	if beforeUnload != nil {
		old := p.handlers.beforeUnload
		p.handlers.beforeUnload = func() (string, bool) {
			ret, ok := beforeUnload()
			var oldRet string
			var oldOK bool
			if old != nil {
				oldRet, oldOK = old()
			}
			if ok {
				return ret, true
			}
			return oldRet, oldOK
		}
	}

	if unload != nil {
		old := p.handlers.unload
		p.handlers.unload = func() {
			unload()
			if old != nil {
				old()
			}
		}
	}
}

// OnUnload chains fn onto the unload event.
func (p *Page) OnUnload(fn func()) {
	p.InitHandlers(nil, nil, fn)
}

// FireResize dispatches the resize event.
func (p *Page) FireResize() {
	p.mu.Lock()
	h := p.handlers.resize
	p.mu.Unlock()
	if h != nil {
		h()
	}
}

// FireBeforeUnload dispatches the beforeunload event and returns the
// confirmation message, if any handler set one.
func (p *Page) FireBeforeUnload() (string, bool) {
	p.mu.Lock()
	h := p.handlers.beforeUnload
	p.mu.Unlock()
	if h == nil {
		return "", false
	}
	return h()
}

// ContextCloser is implemented by plugin instances that hold resources.
type ContextCloser interface {
	Close(ctx context.Context) error
}

// FireUnload dispatches the unload event, then closes the plugin instances
// created by registered factories. Handlers are dropped afterwards so a page
// unloads once.
func (p *Page) FireUnload() {
	p.mu.Lock()
	h := p.handlers.unload
	p.handlers = windowHandlers{}
	owned := p.owned
	p.owned = nil
	p.mu.Unlock()
	if h != nil {
		h()
	}
	for _, v := range owned {
		if c, ok := v.(ContextCloser); ok {
			_ = c.Close(context.Background())
		}
	}
}
