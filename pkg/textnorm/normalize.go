package textnorm

import (
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"
)

// Normalize 规范化查询文本：NFD 分解、去除 NUL、合并空白并去掉首尾空白。
// 规范化是尽力而为的，内部出错时原样返回输入。
func Normalize(text string) (out string) {
	if text == "" {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Str("text", text).Msg("Text normalization failed, using raw input")
			out = text
		}
	}()

	s := norm.NFD.String(text)
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.Join(strings.Fields(s), " ")
}

// Compose 返回用于展示和文件名的 NFC 组合形式，空白同样合并
func Compose(text string) string {
	return strings.Join(strings.Fields(norm.NFC.String(text)), " ")
}

// Fold 返回用于比较的形式：规范化后转小写
func Fold(text string) string {
	return strings.ToLower(Normalize(text))
}
