package player

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Shell 变体的界面骨架描述
type Shell struct {
	Name         string
	Tabs         []string   // 全尺寸：可视化 / 歌词 两个页签
	Menu         []MenuItem // 紧凑：溢出菜单
	CanvasWidth  int
	CanvasHeight int
}

// MenuItem is one entry of the compact overflow menu.
type MenuItem struct {
	Label  string
	Action string  // "rate" | "download"
	Rate   float64 // Action == "rate"
}

// Variant supplies layout, size and bar policy. Behaviour lives in Controller.
type Variant interface {
	Name() string
	RenderShell() Shell
	BarCount() int
	BarColor(i, n int, v byte) color.Color
	// PreferredHeight answers the host's sizing query for the given width.
	PreferredHeight(width int) int
}

// PlaybackRates 紧凑模式菜单中的倍速选项
var PlaybackRates = []float64{0.5, 0.75, 1, 1.25, 1.5, 2}

const (
	canvasWidth  = 500
	canvasHeight = 120
)

// Full 大尺寸，带可视化/歌词页签，色相按柱序旋转
type Full struct{}

func (Full) Name() string  { return "full" }
func (Full) BarCount() int { return 60 }

func (Full) BarColor(i, n int, _ byte) color.Color {
	hue := float64(i) / float64(n) * 360
	r, g, b := colorful.Hsl(hue, 0.8, 0.6).RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 204}
}

func (Full) PreferredHeight(int) int { return 350 }

func (f Full) RenderShell() Shell {
	return Shell{
		Name:         f.Name(),
		Tabs:         []string{"visualizer", "lyrics"},
		CanvasWidth:  canvasWidth,
		CanvasHeight: canvasHeight,
	}
}

// Compact 单行控制条 + 溢出菜单（倍速、下载）
type Compact struct {
	Accent color.NRGBA
}

// DefaultAccent is the compact bar color when none is configured.
var DefaultAccent = color.NRGBA{R: 102, G: 178, B: 255, A: 255}

func (Compact) Name() string  { return "compact" }
func (Compact) BarCount() int { return 40 }

// BarColor fades the accent by value: quiet bins stay at 30% opacity.
func (c Compact) BarColor(_, _ int, v byte) color.Color {
	accent := c.Accent
	if accent == (color.NRGBA{}) {
		accent = DefaultAccent
	}
	alpha := 0.3 + 0.7*float64(v)/255
	accent.A = uint8(math.Round(alpha * 255))
	return accent
}

func (Compact) PreferredHeight(int) int { return 120 }

func (c Compact) RenderShell() Shell {
	menu := make([]MenuItem, 0, len(PlaybackRates)+1)
	for _, r := range PlaybackRates {
		menu = append(menu, MenuItem{Label: rateLabel(r), Action: "rate", Rate: r})
	}
	menu = append(menu, MenuItem{Label: "Download", Action: "download"})
	return Shell{
		Name:         c.Name(),
		Menu:         menu,
		CanvasWidth:  canvasWidth,
		CanvasHeight: 48,
	}
}

func rateLabel(r float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", r), "0"), ".") + "x"
}

// VariantByName 未知名称返回 Full
func VariantByName(name string) Variant {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "compact", "mini":
		return Compact{}
	default:
		return Full{}
	}
}
