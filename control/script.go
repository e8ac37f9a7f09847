package control

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/richinsley/goshaderfilter/filter"
)

// Script runs Lua control programs against a Target. The globals are:
//
//	set_filter(name_or_number)
//	filter()           -> name
//	set_intensity(v)
//	intensity()        -> v
//	sleep(seconds)
//	switch_source()
//	quit()
//	log(msg)
//
// A script that loops forever is stopped by cancelling its context.
type Script struct {
	target Target
}

func NewScript(target Target) *Script {
	return &Script{target: target}
}

// RunFile executes the Lua file at path until it finishes or ctx ends.
func (s *Script) RunFile(ctx context.Context, path string) error {
	return s.run(ctx, path, func(L *lua.LState) error { return L.DoFile(path) })
}

// RunString executes src until it finishes or ctx ends.
func (s *Script) RunString(ctx context.Context, src string) error {
	return s.run(ctx, "<string>", func(L *lua.LState) error { return L.DoString(src) })
}

func (s *Script) run(ctx context.Context, name string, exec func(*lua.LState) error) error {
	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)
	s.register(ctx, L)

	log.WithField("script", name).Info("Control script started")
	err := exec(L)
	if ctxErr := ctx.Err(); ctxErr != nil {
		log.WithField("script", name).Debug("Control script interrupted")
		return ctxErr
	}
	if err != nil {
		return fmt.Errorf("script %s: %w", name, err)
	}
	log.WithField("script", name).Info("Control script finished")
	return nil
}

func (s *Script) register(ctx context.Context, L *lua.LState) {
	fns := map[string]lua.LGFunction{
		"set_filter": func(L *lua.LState) int {
			t, err := luaFilter(L.CheckAny(1))
			if err != nil {
				L.ArgError(1, err.Error())
				return 0
			}
			s.target.SetFilter(t)
			return 0
		},
		"filter": func(L *lua.LState) int {
			L.Push(lua.LString(s.target.Filter().String()))
			return 1
		},
		"set_intensity": func(L *lua.LState) int {
			s.target.SetIntensity(float32(L.CheckNumber(1)))
			return 0
		},
		"intensity": func(L *lua.LState) int {
			L.Push(lua.LNumber(s.target.Intensity()))
			return 1
		},
		"sleep": func(L *lua.LState) int {
			d := time.Duration(float64(L.CheckNumber(1)) * float64(time.Second))
			if d <= 0 {
				return 0
			}
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				L.RaiseError("interrupted")
			}
			return 0
		},
		"switch_source": func(L *lua.LState) int {
			if err := s.target.SwitchSource(); err != nil {
				L.RaiseError("switch_source: %v", err)
			}
			return 0
		},
		"quit": func(L *lua.LState) int {
			s.target.Quit()
			return 0
		},
		"log": func(L *lua.LState) int {
			log.WithField("source", "script").Info(L.CheckString(1))
			return 0
		},
	}
	for name, fn := range fns {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

// luaFilter accepts a filter name, alias or wire number.
func luaFilter(v lua.LValue) (filter.Type, error) {
	switch v := v.(type) {
	case lua.LString:
		return filter.ParseType(string(v))
	case lua.LNumber:
		t := filter.Type(int32(v))
		if float64(t) != float64(v) || !t.Valid() {
			return 0, fmt.Errorf("unknown filter %v", v)
		}
		return t, nil
	}
	return 0, fmt.Errorf("filter must be a name or number, got %s", v.Type())
}
