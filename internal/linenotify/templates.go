package linenotify

import (
	"fmt"
	"strings"
)

// GroupInviteMessage builds the notification text for a matched group. The
// text is deterministic for a given base URL and token so re-enqueues for
// the same group always carry identical content.
func GroupInviteMessage(baseURL, token string) string {
	url := fmt.Sprintf("%s/groups/%s", strings.TrimRight(baseURL, "/"), token)
	return "マッチングが成立しました！\n" +
		"当日のグループ情報はこちらからご確認ください。\n" +
		url
}
