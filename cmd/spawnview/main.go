package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gdamore/tcell/v2"

	"spawncycle.ai/internal/persistence/configstore"
	"spawncycle.ai/internal/sim/spawncycle"
	"spawncycle.ai/internal/sim/spawncycle/policy"
)

func main() {
	configPath := flag.String("config", "./configs/config.yml", "spawn cycle config path")
	count := flag.Int("n", 24, "number of upcoming points to plot")
	flag.Parse()

	if _, err := os.Stat(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	cfg, err := configstore.Open(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	v, err := loadView(cfg, *count)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, "screen:", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "screen init:", err)
		os.Exit(1)
	}
	defer screen.Fini()

	render(screen, v)
	for {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
				return
			}
			if ev.Key() != tcell.KeyRune {
				break
			}
			switch ev.Rune() {
			case 'q':
				return
			case 'm':
				v.toggleMode()
			case '+':
				v.resize(v.count + 8)
			case '-':
				v.resize(v.count - 8)
			case 'r':
				if err := cfg.Reload(); err == nil {
					if nv, err := loadView(cfg, v.count); err == nil {
						v = nv
					}
				}
			}
		}
		render(screen, v)
	}
}

func loadView(cfg *configstore.Store, n int) (*view, error) {
	st := spawncycle.ConfigState{Config: cfg}
	sp, err := st.LoadSpiral()
	if err != nil {
		return nil, err
	}
	sq, err := st.LoadSquare()
	if err != nil {
		return nil, err
	}
	v := &view{
		settings: spawncycle.LoadSettings(cfg, log.New(io.Discard, "", 0)),
		spiral:   sp,
		square:   sq,
	}
	v.resize(n)
	return v, nil
}

func (v *view) toggleMode() {
	if v.settings.Mode == policy.ModeSquare {
		v.settings.Mode = policy.ModeSpiral
	} else {
		v.settings.Mode = policy.ModeSquare
	}
	v.resize(v.count)
}
