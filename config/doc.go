// Copyright 2025 Poiesic Systems
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

// Package config loads papertrail's YAML configuration.
//
// A minimal file only needs the API key, usually taken from the environment:
//
//	provider:
//	  api_key: ${OPENAI_API_KEY}
//	store:
//	  path: ${PAPERTRAIL_DB:-./papertrail_db}
//
// Every other field has a default; see ApplyDefaults.
package config
