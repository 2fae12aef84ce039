package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSSDescriptorRoundTrip(t *testing.T) {
	d := DSSDescriptor{
		Name:         "DSS1",
		NumDrives:    3,
		StripingUnit: 128,
		Disks: []DiskEndpoint{
			{Name: "DISK_1", IP: "127.0.0.1", Port: 13150},
			{Name: "DISK_2", IP: "127.0.0.1", Port: 13151},
			{Name: "DISK_3", IP: "127.0.0.1", Port: 13152},
		},
	}
	encoded := EncodeDSSDescriptor(d)
	got, err := DecodeDSSDescriptor(encoded)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestDSSDescriptorRoundTripWithTxID(t *testing.T) {
	d := DSSDescriptor{
		Name: "DSS1", NumDrives: 3, StripingUnit: 128,
		Disks: []DiskEndpoint{
			{Name: "DISK_1", IP: "127.0.0.1", Port: 13150},
			{Name: "DISK_2", IP: "127.0.0.1", Port: 13151},
			{Name: "DISK_3", IP: "127.0.0.1", Port: 13152},
		},
		TxID: "tx-abc-123",
	}
	got, err := DecodeDSSDescriptor(EncodeDSSDescriptor(d))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestReadDescriptorRoundTrip(t *testing.T) {
	d := DSSDescriptor{
		Name: "DSS1", NumDrives: 3, StripingUnit: 128,
		Disks: []DiskEndpoint{
			{Name: "DISK_1", IP: "127.0.0.1", Port: 13150},
			{Name: "DISK_2", IP: "127.0.0.1", Port: 13151},
			{Name: "DISK_3", IP: "127.0.0.1", Port: 13152},
		},
	}
	encoded := EncodeReadDescriptor(600, d)
	got, err := DecodeReadDescriptor(encoded)
	require.NoError(t, err)
	assert.Equal(t, int64(600), got.Size)
	assert.Equal(t, d, got.DSSDescriptor)
}

func TestDiskFailureDescriptorRoundTrip(t *testing.T) {
	d := DSSDescriptor{
		Name: "DSS1", NumDrives: 3, StripingUnit: 128,
		Disks: []DiskEndpoint{
			{Name: "DISK_1", IP: "127.0.0.1", Port: 13150},
			{Name: "DISK_2", IP: "127.0.0.1", Port: 13151},
			{Name: "DISK_3", IP: "127.0.0.1", Port: 13152},
		},
	}
	files := []string{"foo.txt", "bar.bin"}
	encoded := EncodeDiskFailureDescriptor(d, files)
	got, err := DecodeDiskFailureDescriptor(encoded)
	require.NoError(t, err)
	assert.Equal(t, d, got.DSSDescriptor)
	assert.Equal(t, files, got.Files)
}

func TestDiskFailureDescriptorNoFiles(t *testing.T) {
	d := DSSDescriptor{
		Name: "DSS1", NumDrives: 3, StripingUnit: 256,
		Disks: []DiskEndpoint{
			{Name: "D1", IP: "10.0.0.1", Port: 13100},
			{Name: "D2", IP: "10.0.0.2", Port: 13101},
			{Name: "D3", IP: "10.0.0.3", Port: 13102},
		},
	}
	got, err := DecodeDiskFailureDescriptor(EncodeDiskFailureDescriptor(d, nil))
	require.NoError(t, err)
	assert.Equal(t, d, got.DSSDescriptor)
	assert.Empty(t, got.Files)
}

func TestParseManagerRequest(t *testing.T) {
	req := ParseManagerRequest([]byte("configure-dss DSS1 3 128"))
	assert.Equal(t, "configure-dss", req.Verb)
	assert.Equal(t, []string{"DSS1", "3", "128"}, req.Args)

	empty := ParseManagerRequest([]byte("   "))
	assert.Equal(t, "", empty.Verb)
}

func TestFailureHelpers(t *testing.T) {
	assert.Equal(t, "FAILURE", Failure(""))
	assert.Equal(t, "FAILURE: bad input", Failure("bad input"))
	assert.True(t, IsFailure("FAILURE"))
	assert.True(t, IsFailure("FAILURE: bad input"))
	assert.False(t, IsFailure("SUCCESS"))
}
