package models

import "errors"

// Standard sentinels for compile stages.
var (
	ErrRegistration = errors.New("doctopics: registration error") // ErrRegistration indicates inputs could not be registered.
	ErrCuration     = errors.New("doctopics: curation error")     // ErrCuration indicates the topic graph could not be curated.
	ErrConversion   = errors.New("doctopics: conversion error")   // ErrConversion indicates some topics failed to convert.
	ErrPersist      = errors.New("doctopics: persist error")      // ErrPersist indicates an output sink rejected the results.
)
