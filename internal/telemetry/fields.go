package telemetry

import "strings"

// FieldType is the scalar type a column is decoded into.
type FieldType int

const (
	FieldFloat FieldType = iota
	FieldInt
	FieldStatus
)

// Field describes one positional column of a data row.
type Field struct {
	Name string
	Type FieldType
}

const (
	// FieldCount is the minimum number of tokens a data row must carry.
	FieldCount = 37
	// StatusPosition is the index of the free-form Status column.
	StatusPosition = 29
)

// Fields lists the columns in the order the firmware prints them.
var Fields = [FieldCount]Field{
	{"Time", FieldFloat},
	{"SetT1", FieldFloat},
	{"Temp1", FieldFloat},
	{"dc1", FieldFloat},
	{"Err1", FieldInt},
	{"SetT2", FieldFloat},
	{"Temp2", FieldFloat},
	{"dc2", FieldFloat},
	{"Err2", FieldInt},
	{"SetT3", FieldFloat},
	{"Temp3", FieldFloat},
	{"dc3", FieldFloat},
	{"Err3", FieldInt},
	{"SetT4", FieldFloat},
	{"Temp4", FieldFloat},
	{"dc4", FieldFloat},
	{"Err4", FieldInt},
	{"intT4", FieldFloat},
	{"ExtCur", FieldFloat},
	{"ExtPWM", FieldInt},
	{"ExtTmp", FieldFloat},
	{"Unused", FieldInt},
	{"FAULT", FieldInt},
	{"SetRPM", FieldFloat},
	{"RPM", FieldFloat},
	{"FT", FieldFloat},
	{"FTAVG", FieldFloat},
	{"Puller", FieldInt},
	{"MemFree", FieldInt},
	{"Status", FieldStatus},
	{"WndrSpd", FieldFloat},
	{"PosSpd", FieldFloat},
	{"Length", FieldFloat},
	{"Volume", FieldFloat},
	{"SpDia", FieldFloat},
	{"SpFill", FieldFloat},
	{"FsIntT", FieldInt},
}

// HeaderLine renders the canonical tab-separated column header.
func HeaderLine() string {
	names := make([]string, len(Fields))
	for i, f := range Fields {
		names[i] = f.Name
	}
	return strings.Join(names, "\t")
}
