package telemetry

import (
	"errors"
	"strconv"
	"strings"
)

// DataRow is one complete telemetry sample. A DataRow only exists fully
// populated: DecodeRow either fills every field or returns an error.
type DataRow struct {
	Time float64 `json:"time"`

	SetT1 float64 `json:"set_t1"`
	Temp1 float64 `json:"temp1"`
	DC1   float64 `json:"dc1"`
	Err1  int32   `json:"err1"`

	SetT2 float64 `json:"set_t2"`
	Temp2 float64 `json:"temp2"`
	DC2   float64 `json:"dc2"`
	Err2  int32   `json:"err2"`

	SetT3 float64 `json:"set_t3"`
	Temp3 float64 `json:"temp3"`
	DC3   float64 `json:"dc3"`
	Err3  int32   `json:"err3"`

	SetT4 float64 `json:"set_t4"`
	Temp4 float64 `json:"temp4"`
	DC4   float64 `json:"dc4"`
	Err4  int32   `json:"err4"`

	IntT4 float64 `json:"int_t4"`

	ExtCur float64 `json:"ext_cur"`
	ExtPWM int32   `json:"ext_pwm"`
	ExtTmp float64 `json:"ext_tmp"`

	Unused int32 `json:"unused"`

	Fault  int32   `json:"fault"`
	SetRPM float64 `json:"set_rpm"`
	RPM    float64 `json:"rpm"`

	FT    float64 `json:"ft"`
	FTAvg float64 `json:"ft_avg"`

	Puller  int32 `json:"puller"`
	MemFree int32 `json:"mem_free"`

	Status SystemStatus `json:"status"`

	WndrSpd float64 `json:"wndr_spd"`
	PosSpd  float64 `json:"pos_spd"`

	Length float64 `json:"length"`
	Volume float64 `json:"volume"`

	SpDia  float64 `json:"sp_dia"`
	SpFill float64 `json:"sp_fill"`

	FsIntT int32 `json:"fs_int_t"`
}

// FaultActive reports whether the motor driver flags a fault.
func (r DataRow) FaultActive() bool { return r.Fault == 1 }

// Tokens renders the row back into its 37 column tokens.
func (r DataRow) Tokens() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	i := func(v int32) string { return strconv.FormatInt(int64(v), 10) }
	return []string{
		f(r.Time),
		f(r.SetT1), f(r.Temp1), f(r.DC1), i(r.Err1),
		f(r.SetT2), f(r.Temp2), f(r.DC2), i(r.Err2),
		f(r.SetT3), f(r.Temp3), f(r.DC3), i(r.Err3),
		f(r.SetT4), f(r.Temp4), f(r.DC4), i(r.Err4),
		f(r.IntT4),
		f(r.ExtCur), i(r.ExtPWM), f(r.ExtTmp),
		i(r.Unused),
		i(r.Fault), f(r.SetRPM), f(r.RPM),
		f(r.FT), f(r.FTAvg),
		i(r.Puller), i(r.MemFree),
		r.Status.Token(),
		f(r.WndrSpd), f(r.PosSpd),
		f(r.Length), f(r.Volume),
		f(r.SpDia), f(r.SpFill),
		i(r.FsIntT),
	}
}

// DecodeRow parses one data line. Tab-separated input is split on tabs,
// anything else on runs of whitespace. Tokens past the 37th are ignored.
func DecodeRow(line string) (DataRow, error) {
	tokens := tokenize(line)
	if len(tokens) < FieldCount {
		return DataRow{}, &DecodeError{Kind: ErrorFieldCount, Got: len(tokens), Line: line}
	}

	d := rowDecoder{tokens: tokens}
	// Composite literal calls run left to right, so d.err holds the
	// lowest failing position.
	row := DataRow{
		Time:    d.floatAt(0),
		SetT1:   d.floatAt(1),
		Temp1:   d.floatAt(2),
		DC1:     d.floatAt(3),
		Err1:    d.intAt(4),
		SetT2:   d.floatAt(5),
		Temp2:   d.floatAt(6),
		DC2:     d.floatAt(7),
		Err2:    d.intAt(8),
		SetT3:   d.floatAt(9),
		Temp3:   d.floatAt(10),
		DC3:     d.floatAt(11),
		Err3:    d.intAt(12),
		SetT4:   d.floatAt(13),
		Temp4:   d.floatAt(14),
		DC4:     d.floatAt(15),
		Err4:    d.intAt(16),
		IntT4:   d.floatAt(17),
		ExtCur:  d.floatAt(18),
		ExtPWM:  d.intAt(19),
		ExtTmp:  d.floatAt(20),
		Unused:  d.intAt(21),
		Fault:   d.intAt(22),
		SetRPM:  d.floatAt(23),
		RPM:     d.floatAt(24),
		FT:      d.floatAt(25),
		FTAvg:   d.floatAt(26),
		Puller:  d.intAt(27),
		MemFree: d.intAt(28),
		Status:  ParseStatus(tokens[StatusPosition]),
		WndrSpd: d.floatAt(30),
		PosSpd:  d.floatAt(31),
		Length:  d.floatAt(32),
		Volume:  d.floatAt(33),
		SpDia:   d.floatAt(34),
		SpFill:  d.floatAt(35),
		FsIntT:  d.intAt(36),
	}
	if d.err != nil {
		return DataRow{}, d.err
	}
	return row, nil
}

func tokenize(line string) []string {
	if strings.ContainsRune(line, '\t') {
		return strings.Split(line, "\t")
	}
	return strings.Fields(line)
}

// rowDecoder parses positional tokens and keeps only the first failure.
type rowDecoder struct {
	tokens []string
	err    *DecodeError
}

func (d *rowDecoder) floatAt(pos int) float64 {
	if d.err != nil {
		return 0
	}
	v, err := parseDecimal(strings.TrimSpace(d.tokens[pos]))
	if err != nil {
		d.fail(pos, err)
		return 0
	}
	return v
}

var errNotDecimal = errors.New("not a decimal number")

// parseDecimal is strconv.ParseFloat without the Go literal extensions:
// digit separators and hex mantissas are rejected so a garbled token cannot
// turn into a different value.
func parseDecimal(s string) (float64, error) {
	digits := strings.TrimLeft(s, "+-")
	if strings.ContainsRune(s, '_') || strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		return 0, &strconv.NumError{Func: "ParseFloat", Num: s, Err: errNotDecimal}
	}
	return strconv.ParseFloat(s, 64)
}

func (d *rowDecoder) intAt(pos int) int32 {
	if d.err != nil {
		return 0
	}
	v, err := strconv.ParseInt(strings.TrimSpace(d.tokens[pos]), 10, 32)
	if err != nil {
		d.fail(pos, err)
		return 0
	}
	return int32(v)
}

func (d *rowDecoder) fail(pos int, err error) {
	d.err = &DecodeError{
		Kind:     ErrorFieldParse,
		Field:    Fields[pos].Name,
		Position: pos,
		Raw:      d.tokens[pos],
		Err:      err,
	}
}
