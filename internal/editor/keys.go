package editor

// 控制字节
const (
	keyCtrlD     = 0x04
	keyBackspace = 0x08
	keyTab       = 0x09
	keyLF        = 0x0a
	keyCtrlL     = 0x0c
	keyCR        = 0x0d
	keyCtrlR     = 0x12
	keyCtrlW     = 0x17
	keyEscape    = 0x1b
	keyDelete    = 0x7f
)

// 转义序列的最大长度，超过后整个序列被丢弃
const maxSequenceLen = 16

type keyKind int

const (
	keyByte keyKind = iota
	keyUp
	keyDown
	keyRight
	keyLeft
)

type key struct {
	kind keyKind
	b    byte // kind == keyByte 时有效
}

// decoder 把输入字节流解码为按键
// 不完整的转义序列会跨多次读取缓存，直到收到终止字节
type decoder struct {
	seq []byte
}

// feed 输入一个字节，返回由它完成的按键
func (d *decoder) feed(b byte) []key {
	switch len(d.seq) {
	case 0:
		if b == keyEscape {
			d.seq = append(d.seq, b)
			return nil
		}
		return []key{{kind: keyByte, b: b}}
	case 1:
		if b == '[' || b == 'O' {
			d.seq = append(d.seq, b)
			return nil
		}
		// ESC 后跟普通字节：丢弃 ESC
		d.reset()
		return d.feed(b)
	}

	// CSI 参数和中间字节
	if d.seq[1] == '[' && b >= 0x20 && b <= 0x3f {
		if len(d.seq) >= maxSequenceLen {
			d.reset()
			return nil
		}
		d.seq = append(d.seq, b)
		return nil
	}

	d.reset()
	if b < 0x40 || b > 0x7e {
		return d.feed(b)
	}
	switch b {
	case 'A':
		return []key{{kind: keyUp}}
	case 'B':
		return []key{{kind: keyDown}}
	case 'C':
		return []key{{kind: keyRight}}
	case 'D':
		return []key{{kind: keyLeft}}
	}
	// 不认识的完整序列
	return nil
}

// pending 是否有未完成的转义序列
func (d *decoder) pending() bool {
	return len(d.seq) > 0
}

func (d *decoder) reset() {
	d.seq = d.seq[:0]
}
