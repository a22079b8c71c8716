package utils

import (
	"github.com/abadojack/whatlanggo"
)

var whatLangOpts = whatlanggo.Options{
	Whitelist: map[whatlanggo.Lang]bool{
		whatlanggo.Eng: true,
		whatlanggo.Cmn: true,
		whatlanggo.Jpn: true,
		whatlanggo.Fra: true,
	},
}

// IsEnglish 只有明确识别为英文时返回 true，其余情况按中文处理
func IsEnglish(text string) bool {
	info := whatlanggo.DetectWithOptions(text, whatLangOpts)
	return info.Lang == whatlanggo.Eng && info.IsReliable()
}
