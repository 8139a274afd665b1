package diag

import (
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Reporter renders operator-facing diagnostic messages in the configured
// language. Log lines stay English; only messages surfaced to the operator
// (CLI output, session summaries) go through here.
type Reporter struct {
	localizer *i18n.Localizer
}

// NewReporter builds a reporter for a BCP 47 language tag. Unknown tags fall
// back to English.
func NewReporter(lang string) *Reporter {
	bundle := i18n.NewBundle(language.English)
	addEnglish(bundle)
	addJapanese(bundle)
	return &Reporter{localizer: i18n.NewLocalizer(bundle, lang, "en")}
}

// Message renders a message by ID with template data.
func (r *Reporter) Message(id string, data map[string]interface{}) string {
	msg, err := r.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil {
		return id
	}
	return msg
}

func addEnglish(bundle *i18n.Bundle) {
	bundle.AddMessages(language.English,
		&i18n.Message{
			ID:    "config.invalid",
			Other: "configuration is invalid: {{.Count}} field(s) failed validation",
		},
		&i18n.Message{
			ID:    "capture.unavailable",
			Other: "screen capture is unavailable on monitor {{.Monitor}}",
		},
		&i18n.Message{
			ID:    "session.started",
			Other: "live session {{.Session}} started with strategy {{.Tree}}",
		},
		&i18n.Message{
			ID:    "session.ended",
			Other: "live session {{.Session}} ended after {{.Ticks}} ticks ({{.Overruns}} overruns)",
		},
		&i18n.Message{
			ID:    "setup.started",
			Other: "setup session started; frames are being forwarded to the calibration sink",
		},
		&i18n.Message{
			ID:    "dispatch.failed",
			Other: "action {{.Action}} could not be delivered to the game input",
		},
	)
}

func addJapanese(bundle *i18n.Bundle) {
	bundle.AddMessages(language.Japanese,
		&i18n.Message{
			ID:    "config.invalid",
			Other: "設定が不正です: {{.Count}}個のフィールドが検証に失敗しました",
		},
		&i18n.Message{
			ID:    "capture.unavailable",
			Other: "モニター{{.Monitor}}で画面キャプチャが利用できません",
		},
		&i18n.Message{
			ID:    "session.started",
			Other: "ライブセッション{{.Session}}が戦略{{.Tree}}で開始しました",
		},
		&i18n.Message{
			ID:    "session.ended",
			Other: "ライブセッション{{.Session}}が{{.Ticks}}ティック後に終了しました（超過{{.Overruns}}回）",
		},
		&i18n.Message{
			ID:    "setup.started",
			Other: "セットアップセッションを開始しました。フレームをキャリブレーション側へ転送しています",
		},
		&i18n.Message{
			ID:    "dispatch.failed",
			Other: "アクション{{.Action}}をゲーム入力へ送信できませんでした",
		},
	)
}
