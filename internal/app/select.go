package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"lyrics-collector/pkg/source"
)

// ErrAborted 用户中断了选择
var ErrAborted = errors.New("selection aborted")

const skipOption = "跳过 (skip)"

// Selector 在候选中挑选一条，ok 为 false 表示跳过
type Selector interface {
	Select(ctx context.Context, q source.Query, cands []source.Candidate) (c source.Candidate, ok bool, err error)
}

// AutoSelector 直接取分数最高的候选
type AutoSelector struct{}

func (AutoSelector) Select(_ context.Context, _ source.Query, cands []source.Candidate) (source.Candidate, bool, error) {
	if len(cands) == 0 {
		return source.Candidate{}, false, nil
	}
	return cands[0], true, nil
}

// PromptSelector 在终端里让用户选择
type PromptSelector struct {
	PageSize int
	// ask 默认是 survey.AskOne，测试时替换
	ask func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error
}

// NewPromptSelector 创建终端选择器
func NewPromptSelector() *PromptSelector {
	return &PromptSelector{PageSize: 10, ask: survey.AskOne}
}

func (p *PromptSelector) Select(ctx context.Context, q source.Query, cands []source.Candidate) (source.Candidate, bool, error) {
	if len(cands) == 0 {
		return source.Candidate{}, false, nil
	}
	if err := ctx.Err(); err != nil {
		return source.Candidate{}, false, err
	}

	options := make([]string, 0, len(cands)+1)
	for i, c := range cands {
		options = append(options, optionLabel(i, c))
	}
	options = append(options, skipOption)

	prompt := &survey.Select{
		Message:  fmt.Sprintf("选择 %s 的歌词:", q),
		Options:  options,
		PageSize: p.PageSize,
		Description: func(_ string, index int) string {
			if index >= len(cands) {
				return ""
			}
			return firstLine(cands[index].Preview)
		},
	}

	selectedIndex := 0
	if err := p.ask(prompt, &selectedIndex); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return source.Candidate{}, false, ErrAborted
		}
		return source.Candidate{}, false, fmt.Errorf("prompt failed: %w", err)
	}
	if selectedIndex < 0 || selectedIndex >= len(cands) {
		return source.Candidate{}, false, nil
	}
	return cands[selectedIndex], true, nil
}

func optionLabel(i int, c source.Candidate) string {
	return fmt.Sprintf("%2d. [%s] %3d  %s - %s", i+1, c.Source, c.Score, c.Artist, c.Title)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
