package usi

import (
	"errors"
	"fmt"
	"strconv"
)

var errOutOfRange = errors.New("argument out of range")

// Option is an engine setting exposed through setoption.
type Option interface {
	USIName() string
	USIString() string
	Set(s string) error
}

type BoolOption struct {
	Name  string
	Value *bool
}

func (opt *BoolOption) USIName() string {
	return opt.Name
}

func (opt *BoolOption) USIString() string {
	return fmt.Sprintf("option name %v type check default %v", opt.Name, *opt.Value)
}

func (opt *BoolOption) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*opt.Value = v
	return nil
}

type IntOption struct {
	Name  string
	Min   int
	Max   int
	Value *int
}

func (opt *IntOption) USIName() string {
	return opt.Name
}

func (opt *IntOption) USIString() string {
	return fmt.Sprintf("option name %v type spin default %v min %v max %v",
		opt.Name, *opt.Value, opt.Min, opt.Max)
}

func (opt *IntOption) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v < opt.Min || v > opt.Max {
		return fmt.Errorf("%s %d: %w", opt.Name, v, errOutOfRange)
	}
	*opt.Value = v
	return nil
}
