package main

import "strings"

// flagSlice collects every occurrence of a repeatable flag.
type flagSlice []string

func (i *flagSlice) String() string {
	if i == nil {
		return ""
	}

	return strings.Join(*i, ",")
}

func (i *flagSlice) Set(value string) error {
	*i = append(*i, value)
	return nil
}
