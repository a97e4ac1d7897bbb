package history

// Cursor 浏览历史时的位置
// 位置 Len() 表示"最新之后"，对应空行
type Cursor struct {
	h   *History
	pos int
}

// NewCursor 创建位于最新之后的游标
func NewCursor(h *History) *Cursor {
	return &Cursor{h: h, pos: h.Len()}
}

// Reset 回到最新之后
func (c *Cursor) Reset() {
	c.pos = c.h.Len()
}

// Older 向旧记录移动一步，已在最旧处时返回 false
func (c *Cursor) Older() (string, bool) {
	if c.pos > c.h.Len() {
		c.pos = c.h.Len()
	}
	if c.pos == 0 {
		return "", false
	}
	c.pos--
	return c.h.At(c.pos), true
}

// Newer 向新记录移动一步
// 越过最新记录时停在"最新之后"并返回空字符串和 false
func (c *Cursor) Newer() (string, bool) {
	if c.pos+1 < c.h.Len() {
		c.pos++
		return c.h.At(c.pos), true
	}
	c.pos = c.h.Len()
	return "", false
}
