package ftp

// ReplyCode is a 3-digit FTP status code in [0, 999]. Values outside that
// range are a caller error; the upstream parser is responsible for rejecting
// non-numeric reply lines.
type ReplyCode int

// Digits returns the three decimal digits of the code, most significant
// first.
func (c ReplyCode) Digits() (hundreds, tens, units int) {
	n := int(c)
	units = n % 10
	n /= 10
	tens = n % 10
	n /= 10
	hundreds = n % 10
	return hundreds, tens, units
}

// Hundreds returns the most significant digit, which carries the reply
// class (1 preliminary, 2 completion, 3 intermediate, 4/5 failure).
func (c ReplyCode) Hundreds() int {
	return (int(c) / 100) % 10
}

// IsPositiveCompletion reports whether the code is in the 2xx class.
func (c ReplyCode) IsPositiveCompletion() bool {
	return c.Hundreds() == 2
}

// IsPositivePreliminary reports whether the code is in the 1xx class.
func (c ReplyCode) IsPositivePreliminary() bool {
	return c.Hundreds() == 1
}
