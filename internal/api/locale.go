package api

import (
	"fmt"

	"golang.org/x/text/language"
)

var messageLanguages = language.NewMatcher([]language.Tag{
	language.English,
	language.SimplifiedChinese,
	language.TraditionalChinese,
})

// preferChinese 根据 Accept-Language 判断是否使用中文提示
func preferChinese(acceptLanguage string) bool {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return false
	}
	tag, _, _ := messageLanguages.Match(tags...)
	base, _ := tag.Base()
	return base.String() == "zh"
}

func quotaExceededMessage(acceptLanguage string, limit int) string {
	if preferChinese(acceptLanguage) {
		return fmt.Sprintf("今日播放次数已用完（每日 %d 次），请明天再试。", limit)
	}
	return fmt.Sprintf("You have used all %d plays for today. Please try again tomorrow.", limit)
}
