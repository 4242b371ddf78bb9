/*
 * Copyright 2025 The askdb Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package nl2sql

import "fmt"

// ErrConnection represents a failure to reach the database.
type ErrConnection struct {
	Msg string
	Err error
}

// ErrGeneration represents a failed or unusable response from the external
// text-generation model.
type ErrGeneration struct {
	Msg string
	Err error
}

// ErrSafetyRejected reports a statement that failed the read-only gate. The
// rejected statement is kept visible for transparency; it was never sent to
// the database.
type ErrSafetyRejected struct {
	SQL    string
	Reason string
}

// ErrExecution represents a statement the database rejected.
type ErrExecution struct {
	SQL string
	Err error
}

// ErrSchema represents a failure to reflect the live schema.
type ErrSchema struct {
	Msg string
	Err error
}

func (e *ErrConnection) Error() string {
	return fmt.Sprintf("database connection error: %s: %v", e.Msg, e.Err)
}

func (e *ErrConnection) Unwrap() error { return e.Err }

func (e *ErrGeneration) Error() string {
	return fmt.Sprintf("query generation error: %s: %v", e.Msg, e.Err)
}

func (e *ErrGeneration) Unwrap() error { return e.Err }

func (e *ErrSafetyRejected) Error() string {
	return fmt.Sprintf("statement rejected by safety gate (%s): %s", e.Reason, e.SQL)
}

func (e *ErrExecution) Error() string {
	return fmt.Sprintf("query execution error: %v", e.Err)
}

func (e *ErrExecution) Unwrap() error { return e.Err }

func (e *ErrSchema) Error() string {
	return fmt.Sprintf("schema reflection error: %s: %v", e.Msg, e.Err)
}

func (e *ErrSchema) Unwrap() error { return e.Err }
