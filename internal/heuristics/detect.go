// Package heuristics infers facts about source text without parsing it:
// which language it is written in, how many stdin reads it performs and
// which line a toolchain error points at. Everything here is a best-effort
// text match and never fails.
package heuristics

import (
	"strings"

	"codeplay/internal/runtime"
)

// Marker is one row of the detection table.
type Marker struct {
	Substring string
	Language  runtime.Language
}

// DetectionTable is scanned top to bottom and the first marker present in
// the source wins. Order matters: generic JavaScript/TypeScript markers come
// last so that more specific markers win first.
var DetectionTable = []Marker{
	{"def ", runtime.Python},
	{"import sys", runtime.Python},
	{"print(", runtime.Python},
	{"if __name__ ==", runtime.Python},

	{"#include <iostream>", runtime.Cpp},
	{"using namespace std", runtime.Cpp},
	{"int main()", runtime.Cpp},

	{"public class Main", runtime.Java},
	{"System.out.println", runtime.Java},

	{"<!DOCTYPE html>", runtime.HTML},
	{"<html>", runtime.HTML},

	{"package main", runtime.Go},
	{"func main()", runtime.Go},

	{"<?php", runtime.PHP},

	{"console.log", runtime.JavaScript},
	{"const ", runtime.JavaScript},
	{"interface ", runtime.TypeScript},
	{": number", runtime.TypeScript},
	{": string", runtime.TypeScript},
}

// Detect returns the best-guess language for code. ok is false for empty or
// whitespace-only code and when no marker matches.
func Detect(code string) (lang runtime.Language, ok bool) {
	if strings.TrimSpace(code) == "" {
		return "", false
	}
	for _, m := range DetectionTable {
		if strings.Contains(code, m.Substring) {
			return m.Language, true
		}
	}
	return "", false
}
