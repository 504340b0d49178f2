package walkthrough

import (
	"fmt"
	"time"
)

// DreamPayload is the entry typed into the record view. The embedded
// timestamp keeps entries from separate runs distinguishable in history.
func DreamPayload(now time.Time) string {
	return fmt.Sprintf(
		"テストの夢 - %s\n空を飛ぶ夢を見ました。青い空に白い雲が浮かんでいて、とても気持ちよかったです。",
		now.Format("2006-01-02 15:04:05"),
	)
}
