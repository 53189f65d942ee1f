// Copyright 2026 B4E SRL.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cr95hf

import "fmt"

// Response is one decoded chip response: a status code and the payload that
// followed it on the wire. The transport splits the byte stream into these
// without interpreting the code; callers branch on it via the Status*
// constants or the predicates below.
type Response struct {
	Payload []byte
	Code    byte
}

// IsSuccess reports whether the chip executed the command without tag data.
func (r *Response) IsSuccess() bool {
	return r.Code == StatusSuccess
}

// IsData reports whether the payload carries data received from a tag.
func (r *Response) IsData() bool {
	return r.Code == StatusData
}

// IsError reports whether the code is one of the chip's error statuses.
// StatusTimeout counts as an error: it means no tag answered in time.
func (r *Response) IsError() bool {
	return !r.IsSuccess() && !r.IsData()
}

// String renders the response for debug output.
func (r *Response) String() string {
	return fmt.Sprintf("code=0x%02X len=%d data=% X", r.Code, len(r.Payload), r.Payload)
}
