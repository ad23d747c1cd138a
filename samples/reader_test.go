package samples

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validFile = `timestamp,type,request_url,params,correct,del_time (ms),get_time (ms),set_time (ms)
2017-06-16 11:56:20.191473,flex,profile_memcache,{'bytes': 10},True,1.5,5.0,2.25
2017-06-16 11:56:20.291473,flex,profile_memcache,{'bytes': 10},True,1.0,15.0,3.0
2017-06-16 11:56:20.391473,flex,profile_memcache,"{'bytes': 100, 'values': 10}",None,0.5,7.0,4.0
`

func TestRead(t *testing.T) {
	table, err := Read("valid.csv", strings.NewReader(validFile))
	require.NoError(t, err)

	assert.Len(t, table.Samples, 3)
	assert.Equal(t, "flex", table.SourceType())
	assert.Equal(t, "profile_memcache", table.Endpoint())
	assert.Equal(t, "2017-06-16 11:56:20.191473", table.Timestamp())
	assert.True(t, table.Has(ColGetTime))
	assert.False(t, table.Has("throughput"))

	first := table.Samples[0]
	assert.Equal(t, "{'bytes': 10}", first.Params)
	assert.True(t, first.Correct)
	assert.Equal(t, 1.5, first.DelTime)
	assert.Equal(t, 5.0, first.GetTime)
	assert.Equal(t, 2.25, first.SetTime)

	third := table.Samples[2]
	assert.Equal(t, "{'bytes': 100, 'values': 10}", third.Params)
	assert.False(t, third.Correct)

	v, ok := third.Metric(ColSetTime)
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)
	_, ok = third.Metric(ColParams)
	assert.False(t, ok)
}

func TestReadMalformed(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{
			name:   "empty file",
			input:  "",
			reason: "empty file",
		},
		{
			name:   "header only",
			input:  "timestamp,type,request_url,params,correct,del_time (ms),get_time (ms),set_time (ms)\n",
			reason: "no data rows",
		},
		{
			name:   "no header row",
			input:  "2017-06-16,std,profile_memcache,{'bytes': 10},True,1,2,3\n",
			reason: "no header row",
		},
		{
			name: "short row",
			input: "timestamp,type,params,get_time (ms)\n" +
				"t0,std,{'bytes': 10},1.0\n" +
				"t1,std,{'bytes': 10}\n",
			reason: "row width differs from header",
		},
		{
			name: "bad float",
			input: "timestamp,type,params,get_time (ms)\n" +
				"t0,std,{'bytes': 10},fast\n",
			reason: "invalid row",
		},
		{
			name: "mixed source types",
			input: "timestamp,type,params,get_time (ms)\n" +
				"t0,std,{'bytes': 10},1.0\n" +
				"t1,flex,{'bytes': 10},1.0\n",
			reason: "mixed source types",
		},
		{
			name: "mixed endpoints",
			input: "timestamp,type,request_url,params,get_time (ms)\n" +
				"t0,std,profile_memcache,{'bytes': 10},1.0\n" +
				"t1,std,profile_ndb,{'bytes': 10},1.0\n",
			reason: "mixed endpoints",
		},
		{
			name: "duplicate column",
			input: "type,type,params\n" +
				"std,std,{'bytes': 10}\n",
			reason: "duplicate column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(tt.name, strings.NewReader(tt.input))
			require.Error(t, err)

			var malformed *MalformedInputError
			require.True(t, errors.As(err, &malformed), "unexpected error type %T", err)
			assert.Equal(t, tt.name, malformed.File)
			assert.Contains(t, malformed.Reason, tt.reason)
			assert.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParamSets(t *testing.T) {
	table, err := Read("valid.csv", strings.NewReader(validFile))
	require.NoError(t, err)

	assert.Equal(t, []ParamSetCount{
		{Params: "{'bytes': 10}", Count: 2},
		{Params: "{'bytes': 100, 'values': 10}", Count: 1},
	}, table.ParamSets())
}

func TestWriteCSVReadBack(t *testing.T) {
	in := []Sample{
		{Timestamp: "t0", SourceType: "std", Endpoint: "profile_ndb", Params: BytesParams(10), Correct: true, DelTime: 1, GetTime: 2.5, SetTime: 3},
		{Timestamp: "t1", SourceType: "std", Endpoint: "profile_ndb", Params: BytesParams(10), DelTime: 4, GetTime: 5, SetTime: 6.125},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, in))
	assert.True(t, strings.HasPrefix(buf.String(), strings.Join(Header, ",")+"\n"))

	path := filepath.Join(t.TempDir(), "samples.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	table, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, table.Samples)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "{'bytes': 10}", BytesParams(10))
	assert.Equal(t, "{'bytes': 100, 'entities': 5}", FormatParams(Param{"bytes", 100}, Param{"entities", 5}))

	assert.Equal(t, "10.0", FormatFloat(10))
	assert.Equal(t, "25.5", FormatFloat(25.5))
	assert.Equal(t, "0.0", FormatFloat(0))
	assert.Equal(t, "-3.0", FormatFloat(-3))
	assert.Equal(t, "0.001", FormatFloat(0.001))
}
