package i18n

// 알림 메시지 키
const (
	KeyErrorDetected       = "toast.error_detected"
	KeyReportSent          = "toast.report_sent"
	KeyReportQueued        = "toast.report_queued"
	KeyReportFailed        = "toast.report_failed"
	KeyRateLimited         = "toast.rate_limited"
	KeyDescriptionTooShort = "toast.description_too_short"
	KeyStorageFull         = "toast.storage_full"
)

// DefaultMessages returns the built-in notices for all supported locales
func DefaultMessages() map[Locale]map[string]string {
	return map[Locale]map[string]string{
		LocaleKo: koMessages,
		LocaleEn: enMessages,
		LocaleJa: jaMessages,
	}
}

var koMessages = map[string]string{
	KeyErrorDetected:       "문제가 발생했습니다. 오류를 신고해주시면 빠르게 해결하겠습니다",
	KeyReportSent:          "오류 신고가 전송되었습니다. 감사합니다",
	KeyReportQueued:        "오프라인 상태입니다. 신고가 저장되었으며 연결되면 자동으로 전송됩니다",
	KeyReportFailed:        "신고 전송에 실패했습니다. 잠시 후 다시 시도해주세요",
	KeyRateLimited:         "신고가 너무 많습니다. 잠시 후 다시 시도해주세요",
	KeyDescriptionTooShort: "문제 설명을 %d자 이상 입력해주세요",
	KeyStorageFull:         "저장 공간이 부족하여 신고를 저장하지 못했습니다",
}

var enMessages = map[string]string{
	KeyErrorDetected:       "Something went wrong. Report it and we will look into it",
	KeyReportSent:          "Your report was sent. Thank you",
	KeyReportQueued:        "You are offline. The report was saved and will be sent once you reconnect",
	KeyReportFailed:        "Failed to send the report. Please try again",
	KeyRateLimited:         "Too many reports. Please try again later",
	KeyDescriptionTooShort: "Please describe the problem in at least %d characters",
	KeyStorageFull:         "Storage is full, the report could not be saved",
}

var jaMessages = map[string]string{
	KeyErrorDetected:       "問題が発生しました。報告していただければ対応いたします",
	KeyReportSent:          "報告を送信しました。ありがとうございます",
	KeyReportQueued:        "オフラインです。報告は保存され、接続後に自動で送信されます",
	KeyReportFailed:        "報告の送信に失敗しました。もう一度お試しください",
	KeyRateLimited:         "報告が多すぎます。しばらくしてからお試しください",
	KeyDescriptionTooShort: "問題の説明を%d文字以上入力してください",
	KeyStorageFull:         "保存容量が不足しているため、報告を保存できませんでした",
}
