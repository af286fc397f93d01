package main

import (
	"testing"
	"time"
)

func baseConfig() *appConfig {
	return &appConfig{
		if1:          ifaceConfig{name: "zcan0", driver: "socketcan", channel: "vcan0", baud: 115200, packet: true},
		if2:          ifaceConfig{name: "", driver: "socketcan", baud: 115200},
		serialReadTO: 50 * time.Millisecond,
		rxPool:       64,
		rxQueue:      256,
		logFormat:    "text",
		logLevel:     "info",
	}
}

func TestConfigValidate_OK(t *testing.T) {
	if err := baseConfig().validate(); err != nil {
		t.Fatalf("expected ok got %v", err)
	}
}

func TestConfigValidate_TwoInterfaces(t *testing.T) {
	c := baseConfig()
	c.if2 = ifaceConfig{name: "zcan1", driver: "serial", channel: "/dev/ttyUSB0", baud: 115200}
	if err := c.validate(); err != nil {
		t.Fatalf("expected ok got %v", err)
	}
	ifcs := c.interfaces()
	if len(ifcs) != 2 {
		t.Fatalf("expected 2 interfaces, got %d", len(ifcs))
	}
	if ifcs[1].Channel.Driver != "serial" || ifcs[1].Channel.ReadTO != c.serialReadTO {
		t.Fatalf("unexpected channel config: %+v", ifcs[1].Channel)
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*appConfig)
	}{
		{"badFormat", func(c *appConfig) { c.logFormat = "xx" }},
		{"badLevel", func(c *appConfig) { c.logLevel = "nope" }},
		{"badDriver", func(c *appConfig) { c.if1.driver = "x" }},
		{"noChannel", func(c *appConfig) { c.if1.channel = "" }},
		{"badSerialBaud", func(c *appConfig) { c.if1.driver = "serial"; c.if1.baud = 0 }},
		{"badRxPool", func(c *appConfig) { c.rxPool = 0 }},
		{"badRxQueue", func(c *appConfig) { c.rxQueue = -1 }},
		{"badSerialTO", func(c *appConfig) { c.serialReadTO = 0 }},
		{"dupNames", func(c *appConfig) { c.if2 = c.if1 }},
		{"if2NoChannel", func(c *appConfig) { c.if2 = ifaceConfig{name: "zcan1", driver: "socketcan"} }},
	}
	for _, tc := range tests {
		base := baseConfig()
		tc.mod(base)
		if err := base.validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestConfigInterfaces_DisabledSlots(t *testing.T) {
	c := baseConfig()
	c.if1.name = ""
	if got := c.interfaces(); len(got) != 0 {
		t.Fatalf("expected no interfaces, got %d", len(got))
	}
}
