package utils

import (
	"log/slog"
	"regexp"
	"strings"
)

const MINIO_SCHEME = "minio://"

var minioImageRe = regexp.MustCompile(`!\[([^\]]*)\]\(minio://([^)]+)\)`)

// ReplaceMinioURLs 把 markdown 图片中的 minio://object 替换为预签名地址，签名失败时保留原地址
func ReplaceMinioURLs(content string, preSignFunc func(object string) (string, error)) string {
	if preSignFunc == nil || !strings.Contains(content, MINIO_SCHEME) {
		return content
	}

	return minioImageRe.ReplaceAllStringFunc(content, func(match string) string {
		parts := minioImageRe.FindStringSubmatch(match)
		url, err := preSignFunc(parts[2])
		if err != nil {
			slog.Warn("failed to presign object url", slog.String("object", parts[2]), slog.String("error", err.Error()))
			return match
		}
		return "![" + parts[1] + "](" + url + ")"
	})
}
