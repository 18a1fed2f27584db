package lrc

import (
	"bufio"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Line 歌词行结构
type Line struct {
	Time float64 // 时间戳（秒）
	Text string  // 歌词文本
}

var (
	lineRe      = regexp.MustCompile(`\[(\d{2}):(\d{2})(?:\.(\d{1,3}))?\](.*)`)
	timestampRe = regexp.MustCompile(`^\[\d{1,3}:\d{2}(?:[.:]\d{1,3})?\]`)
)

// LooksTimestamped 判断文本是否像带时间标签的歌词（以 "[" 开头）
func LooksTimestamped(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "[")
}

// Preview 取前 n 行带时间戳的歌词作为预览
func Preview(text string, n int) string {
	if n <= 0 {
		return ""
	}

	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !timestampRe.MatchString(line) {
			continue
		}
		lines = append(lines, line)
		if len(lines) == n {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// LineCount 返回非空行数
func LineCount(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}

// ParseLRC 解析歌词，按时间排序
func ParseLRC(text string) []Line {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var result []Line

	for scanner.Scan() {
		for _, match := range lineRe.FindAllStringSubmatch(scanner.Text(), -1) {
			min, _ := strconv.Atoi(match[1])
			sec, _ := strconv.Atoi(match[2])
			ms := 0
			if msStr := match[3]; msStr != "" {
				ms, _ = strconv.Atoi(msStr)
				// .1 表示 100ms，.49 表示 490ms
				switch len(msStr) {
				case 1:
					ms *= 100
				case 2:
					ms *= 10
				}
			}
			result = append(result, Line{
				Time: float64(min*60+sec) + float64(ms)/1000,
				Text: strings.TrimSpace(match[4]),
			})
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Time < result[j].Time })
	return result
}

// Span 返回最后一行带时间戳歌词的时间，没有时间戳时为 0
func Span(text string) time.Duration {
	lines := ParseLRC(text)
	if len(lines) == 0 {
		return 0
	}
	return time.Duration(lines[len(lines)-1].Time * float64(time.Second))
}
