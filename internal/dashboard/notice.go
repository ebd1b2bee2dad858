package dashboard

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a dismissible message shown above the table.
type Notice struct {
	ID      int
	Kind    NoticeKind
	Op      Op
	Message string
}

func (c *Controller) notifyLocked(kind NoticeKind, op Op, msg string) {
	c.noticeSeq++
	c.st.Notices = append(c.st.Notices, Notice{ID: c.noticeSeq, Kind: kind, Op: op, Message: msg})
	if n := len(c.st.Notices); n > maxNotices {
		c.st.Notices = append([]Notice(nil), c.st.Notices[n-maxNotices:]...)
	}
}

// Dismiss removes a notice. It reports whether the notice existed.
func (c *Controller) Dismiss(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, n := range c.st.Notices {
		if n.ID == id {
			c.st.Notices = append(c.st.Notices[:i:i], c.st.Notices[i+1:]...)
			return true
		}
	}
	return false
}
