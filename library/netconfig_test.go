package homie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostNetInquirerUnknownInterface(t *testing.T) {
	_, _, err := HostNetInquirer{Name: "no-such-interface0"}.InquireNetConfig()
	assert.ErrorIs(t, err, errNoInterface)
}

func TestHostNetInquirerFeedsDevice(t *testing.T) {
	ip, mac, err := HostNetInquirer{}.InquireNetConfig()
	if err != nil {
		t.Skipf("host has no usable interface: %v", err)
	}

	d := createTestDevice(t, make(retainedTopics))
	d.inquirer = HostNetInquirer{}
	if err := d.InquireNetConfig(); err != nil {
		t.Fatalf("InquireNetConfig: %v", err)
	}
	assert.Equal(t, ip, d.LocalIP())
	assert.Equal(t, mac, d.Mac())
}
